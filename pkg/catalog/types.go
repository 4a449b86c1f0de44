package catalog

// Book is a single catalog record. Identity is ID.
type Book struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Title string `json:"title" yaml:"title" toml:"title"`
	List  string `json:"list" yaml:"list" toml:"list"`
	Lang  string `json:"lang,omitempty" yaml:"lang,omitempty" toml:"lang,omitempty"`
}

// Behavior describes the assistant's persona for prompt construction.
type Behavior struct {
	Tone    string `json:"tone" yaml:"tone" toml:"tone"`
	Focus   string `json:"focus" yaml:"focus" toml:"focus"`
	Style   string `json:"style" yaml:"style" toml:"style"`
	Persona string `json:"persona" yaml:"persona" toml:"persona"`
}

// Templates holds fixed user-facing response strings.
type Templates struct {
	NotFound      string   `json:"notFound" yaml:"not_found" toml:"not_found"`
	Found         string   `json:"found" yaml:"found" toml:"found"`
	MultipleFound string   `json:"multipleFound" yaml:"multiple_found" toml:"multiple_found"`
	GeneralHelp   string   `json:"generalHelp" yaml:"general_help" toml:"general_help"`
	Closing       []string `json:"closing" yaml:"closing" toml:"closing"`
	Error         string   `json:"error" yaml:"error" toml:"error"`
}

// LibraryData is the on-disk shape of a catalog file.
type LibraryData struct {
	BotName         string    `json:"botName" yaml:"bot_name" toml:"bot_name"`
	WelcomeMessages []string  `json:"welcomeMessages" yaml:"welcome_messages" toml:"welcome_messages"`
	Books           []Book    `json:"books" yaml:"books" toml:"books"`
	Templates       Templates `json:"responseTemplates" yaml:"response_templates" toml:"response_templates"`
	Behavior        Behavior  `json:"botBehavior" yaml:"bot_behavior" toml:"bot_behavior"`
}
