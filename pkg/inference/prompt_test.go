package inference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teslashibe/go-librarian/pkg/session"
)

func TestSystemPromptEntityClause(t *testing.T) {
	cat := testCatalog(t)

	st := session.New()
	st.SetEntity("A05", "X")
	prompt := BuildSystemPrompt(cat, st.Snapshot())
	assert.Contains(t, prompt, `ID="A05"`)
	assert.Contains(t, prompt, `العنوان="X"`)

	empty := BuildSystemPrompt(cat, *session.New())
	assert.NotContains(t, empty, "آخر كتاب تم ذكره")

	half := session.State{LastEntityID: "A05"}
	assert.NotContains(t, BuildSystemPrompt(cat, half), "آخر كتاب تم ذكره",
		"clause requires both id and title")
}

func TestSystemPromptTopics(t *testing.T) {
	cat := testCatalog(t)

	st := session.New()
	assert.NotContains(t, BuildSystemPrompt(cat, st.Snapshot()), "اهتمامات المستخدم")

	st.AddTopic("التاريخ")
	st.AddTopic("الأدب")
	prompt := BuildSystemPrompt(cat, st.Snapshot())
	assert.Contains(t, prompt, "اهتمامات المستخدم السابقة: التاريخ، الأدب.")
}

func TestSystemPromptPersona(t *testing.T) {
	prompt := BuildSystemPrompt(testCatalog(t), *session.New())
	assert.True(t, strings.HasPrefix(prompt, "أنت librarian.\n"))
	assert.Contains(t, prompt, "شخصيتك: kind.")
	assert.Contains(t, prompt, "```json")
}

func TestVoiceInstruction(t *testing.T) {
	text := BuildVoiceInstruction(testCatalog(t))
	assert.Contains(t, text, "مساعد صوتي")
	assert.Contains(t, text, `"A05"`)
	assert.NotContains(t, text, "آخر كتاب تم ذكره")
}

func TestComposeTurn(t *testing.T) {
	assert.Equal(t, "SYS\n\nUser: hi", ComposeTurn("SYS", "User", "hi"))
}
