package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
)

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("YTAI_TEST_GEMINI_KEY", "")
	_, err := NewClient(context.Background(), Config{APIKeyEnv: "YTAI_TEST_GEMINI_KEY"})
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestSplitMessages(t *testing.T) {
	system, history, last := splitMessages([]domain.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "reply"},
		{Role: domain.RoleSystem, Content: "use markdown"},
		{Role: domain.RoleUser, Content: "second"},
	})
	assert.Equal(t, "be brief\n\nuse markdown", system)
	assert.Equal(t, "second", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("reply"), history[1].Parts[0])
}

func TestSplitMessagesWithoutUserTurn(t *testing.T) {
	_, history, last := splitMessages([]domain.Message{{Role: domain.RoleSystem, Content: "x"}})
	assert.Empty(t, history)
	assert.Empty(t, last)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("## Title\n"), genai.Text("body")}},
		}},
	}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "## Title\nbody", text)
}

func TestResponseTextEmpty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
	} {
		_, err := responseText(resp)
		assert.ErrorIs(t, err, domain.ErrProvider)
	}
}

func TestClassify(t *testing.T) {
	err := classify("gemini chat", errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."))
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.ErrorIs(t, err, domain.ErrProvider)

	err = classify("gemini chat", errors.New("rpc error: code = Unavailable"))
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.NotErrorIs(t, err, domain.ErrAuth)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, domain.ModelChat, kindOf([]string{"generateContent", "countTokens"}))
	assert.Equal(t, domain.ModelEmbedding, kindOf([]string{"embedContent"}))
	assert.Equal(t, domain.ModelKind(""), kindOf([]string{"generateAnswer"}))
}
