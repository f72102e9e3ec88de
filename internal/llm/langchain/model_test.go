package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	lcschema "github.com/tmc/langchaingo/schema"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

type fakeLLM struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	response *llms.ContentResponse
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.response, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerateMapsRolesAndOptions(t *testing.T) {
	fake := &fakeLLM{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Deactivate plugins", StopReason: "stop"}}}}
	cm := NewChatModel(fake, "openai/test", llms.WithMaxTokens(256))

	temp := float32(0.3)
	msg, err := cm.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.AssistantMessage("welcome", nil),
		schema.UserMessage("help"),
	}, model.WithTemperature(temp))
	require.NoError(t, err)

	require.Len(t, fake.messages, 3)
	assert.Equal(t, lcschema.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, lcschema.ChatMessageTypeAI, fake.messages[1].Role)
	assert.Equal(t, lcschema.ChatMessageTypeHuman, fake.messages[2].Role)
	assert.Equal(t, 256, fake.opts.MaxTokens)
	assert.InDelta(t, 0.3, fake.opts.Temperature, 1e-6)

	assert.Equal(t, "Deactivate plugins", msg.Content)
	assert.Equal(t, []chat.Citation{}, msg.Extra[chat.ExtraCitationsKey])
	assert.Equal(t, "openai/test", cm.GetType())
}

func TestGenerateWrapsBackendError(t *testing.T) {
	boom := errors.New("quota exceeded")
	cm := NewChatModel(&fakeLLM{err: boom}, "ollama/test")

	_, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateNoChoices(t *testing.T) {
	cm := NewChatModel(&fakeLLM{response: &llms.ContentResponse{}}, "ollama/test")

	_, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.Error(t, err)
}
