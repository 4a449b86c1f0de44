package inference

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/session"
)

// Prompt fragments. The assistant answers in Arabic, so the instructions are
// written in Arabic too.
const (
	entityClauseFormat = `آخر كتاب تم ذكره في هذه الجلسة: ID="%s"، العنوان="%s". إذا استخدم المستخدم ضمائر (هو، منه، الجزء الثاني، أريده) فهي تشير لهذا الكتاب.`
	topicsClauseFormat = `اهتمامات المستخدم السابقة: %s.`

	textRules = `قواعد الرد المختصر:
1. ابحث بال ID (مثل A01) → تطابق تام. أو بالعنوان → كلمات مفتاحية.
2. الرد يجب أن يكون مختصراً جداً:
   - إذا وُجد: **✅ متوفر** | 📖 العنوان | 🔖 الرقم: {id} | 📂 الرف: {list}
   - إذا تعدد: قائمة مختصرة (أقصى 5 نتائج).
   - إذا لم يوجد: "❌ غير متوفر. جرّب كلمات أخرى."
   - إذا سأل سؤالاً عاماً أو طلب مساعدة: أجب بإيجاز.
3. لغة الرد: عربية فصحى مختصرة.
4. لا تكرر التعليمات أو تشرح نفسك. أجب مباشرة.`

	voiceRules = `القواعد:
1. إذا بحث بـ ID (مثل A05) أو عنوان → ابحث في القائمة.
2. إذا وُجد: اقرأ العنوان والرقم والرف بوضوح.
3. إذا تعدد: اذكر أول 2-3 نتائج.
4. إذا لم يوجد: اقترح المحاولة مرة أخرى.
5. تحدث بالعربية الواضحة المختصرة.`
)

// EntityClause returns the pronoun-resolution clause, or "" unless both
// entity fields are set.
func EntityClause(st session.State) string {
	if !st.HasEntity() {
		return ""
	}
	return fmt.Sprintf(entityClauseFormat, st.LastEntityID, st.LastEntityTitle)
}

// TopicsClause returns the preferred-topics clause, or "" when there are none.
func TopicsClause(st session.State) string {
	if len(st.PreferredTopics) == 0 {
		return ""
	}
	return fmt.Sprintf(topicsClauseFormat, strings.Join(st.PreferredTopics, "، "))
}

// BuildSystemPrompt assembles the text-path system prompt: persona, the
// session clauses, the full book list as JSON and the reply rules.
func BuildSystemPrompt(cat *catalog.Catalog, st session.State) string {
	b := cat.Behavior()

	var sb strings.Builder
	fmt.Fprintf(&sb, "أنت %s.\n", b.Persona)
	fmt.Fprintf(&sb, "شخصيتك: %s.\n", b.Tone)
	fmt.Fprintf(&sb, "مهمتك: %s\n\n", b.Focus)

	if c := EntityClause(st); c != "" {
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	if c := TopicsClause(st); c != "" {
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	sb.WriteString("\nالبيانات المتاحة لك (قائمة الكتب بصيغة JSON):\n```json\n")
	sb.WriteString(cat.BooksJSON())
	sb.WriteString("\n```\nالحقول: 'id', 'title', 'list'.\n\n")
	sb.WriteString(textRules)
	return sb.String()
}

// BuildVoiceInstruction assembles the system instruction for live voice
// sessions. It carries no session clauses.
func BuildVoiceInstruction(cat *catalog.Catalog) string {
	b := cat.Behavior()

	var sb strings.Builder
	fmt.Fprintf(&sb, "أنت %s.\n", b.Persona)
	fmt.Fprintf(&sb, "شخصيتك: %s.\n", b.Tone)
	fmt.Fprintf(&sb, "مهمتك: %s\n\n", b.Focus)
	sb.WriteString("أنت مساعد صوتي الآن. اجعل ردودك مختصرة وطبيعية للكلام.\n\n")
	sb.WriteString("البيانات المتاحة لك (كتب بصيغة JSON):\n")
	sb.WriteString(cat.BooksJSON())
	sb.WriteString("\n\nالحقول: 'id', 'title', 'list'.\n\n")
	sb.WriteString(voiceRules)
	return sb.String()
}

// ComposeTurn joins the system prompt and the user's message into the single
// user-role turn sent to the model.
func ComposeTurn(systemPrompt, label, message string) string {
	return systemPrompt + "\n\n" + label + ": " + message
}
