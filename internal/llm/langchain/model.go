// Package langchain exposes langchaingo backends (OpenAI, Anthropic, Ollama)
// as eino chat models so the generation chain can run on any of them.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/llms"
	lcschema "github.com/tmc/langchaingo/schema"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

// ChatModel wraps a langchaingo llms.Model.
type ChatModel struct {
	llm  llms.Model
	name string
	opts []llms.CallOption
}

// NewChatModel wraps llm; name is reported through GetType.
func NewChatModel(llm llms.Model, name string, opts ...llms.CallOption) *ChatModel {
	return &ChatModel{llm: llm, name: name, opts: opts}
}

// Generate converts eino messages to langchaingo message content and returns
// the first choice. These backends have no grounding, so citations are empty.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	messages := make([]llms.MessageContent, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		messages = append(messages, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	response, err := m.llm.GenerateContent(ctx, messages, m.callOptions(opts...)...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("no response choices")
	}

	choice := response.Choices[0]
	return &schema.Message{
		Role:         schema.Assistant,
		Content:      choice.Content,
		ResponseMeta: &schema.ResponseMeta{FinishReason: choice.StopReason},
		Extra:        map[string]any{chat.ExtraCitationsKey: []chat.Citation{}},
	}, nil
}

// Stream yields the full reply as a single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return errors.New("langchain adapter does not support function tools")
}

// GetType reports the backing provider.
func (m *ChatModel) GetType() string {
	return m.name
}

func (m *ChatModel) callOptions(opts ...model.Option) []llms.CallOption {
	callOpts := append([]llms.CallOption(nil), m.opts...)
	common := model.GetCommonOptions(&model.Options{}, opts...)
	if common.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*common.Temperature)))
	}
	if common.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(float64(*common.TopP)))
	}
	if common.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*common.MaxTokens))
	}
	return callOpts
}

func messageType(role schema.RoleType) lcschema.ChatMessageType {
	switch role {
	case schema.System:
		return lcschema.ChatMessageTypeSystem
	case schema.Assistant:
		return lcschema.ChatMessageTypeAI
	default:
		return lcschema.ChatMessageTypeHuman
	}
}
