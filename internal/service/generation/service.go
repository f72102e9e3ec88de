// Package generation turns a transcript plus a new user message into one
// remote model call and maps the answer back into transcript vocabulary.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

// Options tunes how requests are assembled.
type Options struct {
	// HistoryLimit keeps only the most recent N history entries. Zero sends
	// the full transcript.
	HistoryLimit int
	// SystemInstruction overrides the built-in WP-FixIt brief.
	SystemInstruction string
}

// Service is stateless apart from the compiled chain and may be shared by
// every session.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	opts      Options
	logger    *slog.Logger
}

// NewService compiles system prompt + history + user query into a chain
// ending at chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts Options, logger *slog.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if opts.HistoryLimit < 0 {
		return nil, fmt.Errorf("history limit must not be negative: %d", opts.HistoryLimit)
	}
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = SystemInstruction
	}
	if logger == nil {
		logger = slog.Default()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile generation chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		opts:      opts,
		logger:    logger.With("component", "generation"),
	}, nil
}

// Generate sends history followed by text as the final user turn. Errors from
// the model are wrapped and returned; there is no retry.
func (s *Service) Generate(ctx context.Context, text string, history []chat.HistoryEntry) (chat.Reply, error) {
	input := map[string]any{
		"system":  s.opts.SystemInstruction,
		"history": s.buildHistoryMessages(history),
		"query":   text,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("run generation chain: %w", err)
	}

	reply := toReply(response)
	s.logger.Debug("generated reply", "history", len(history), "length", len(reply.Text), "citations", len(reply.Citations))
	return reply, nil
}

// ChatModel exposes the underlying model, mostly for diagnostics.
func (s *Service) ChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) buildHistoryMessages(entries []chat.HistoryEntry) []*schema.Message {
	if len(entries) == 0 {
		return []*schema.Message{}
	}

	startIdx := 0
	if limit := s.opts.HistoryLimit; limit > 0 && len(entries) > limit {
		startIdx = len(entries) - limit
	}

	history := make([]*schema.Message, 0, len(entries)-startIdx)
	for _, entry := range entries[startIdx:] {
		switch entry.Speaker {
		case chat.SpeakerUser:
			history = append(history, schema.UserMessage(entry.Text))
		case chat.SpeakerAssistant:
			history = append(history, schema.AssistantMessage(entry.Text, nil))
		}
	}
	return history
}

func toReply(msg *schema.Message) chat.Reply {
	reply := chat.Reply{Citations: []chat.Citation{}}
	if msg == nil {
		reply.Text = FallbackReply
		return reply
	}

	reply.Text = msg.Content
	if reply.Text == "" {
		reply.Text = FallbackReply
	}

	if citations, ok := msg.Extra[chat.ExtraCitationsKey].([]chat.Citation); ok {
		reply.Citations = append(reply.Citations, citations...)
	}
	return reply
}
