// Package gemini adapts the Gemini generateContent REST API to eino's chat
// model interface, including Google Search grounding.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

// Config describes how to reach the Gemini API.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// GoogleSearch attaches the google_search tool so answers are grounded
	// and report their web sources.
	GoogleSearch bool

	Temperature     *float32
	TopP            *float32
	MaxOutputTokens *int

	// HTTPClient defaults to a client without a timeout; callers bound the
	// request through the context.
	HTTPClient *http.Client
}

// ChatModel implements model.ChatModel for Gemini.
type ChatModel struct {
	cfg    Config
	client *http.Client
}

// NewChatModel validates cfg and returns a ready ChatModel.
func NewChatModel(cfg *Config) (*ChatModel, error) {
	if cfg == nil {
		return nil, errors.New("gemini config is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini model is required")
	}

	c := *cfg
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &ChatModel{cfg: c, client: client}, nil
}

type options struct {
	GoogleSearch *bool
}

// WithGoogleSearch overrides the configured grounding flag for one call.
func WithGoogleSearch(enabled bool) model.Option {
	return model.WrapImplSpecificOptFn(func(o *options) {
		o.GoogleSearch = &enabled
	})
}

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini api error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error %d: %s", e.StatusCode, e.Message)
}

type request struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type response struct {
	Candidates []struct {
		Content           content `json:"content"`
		FinishReason      string  `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web,omitempty"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate issues a single generateContent call. The returned message carries
// grounding citations in Extra[chat.ExtraCitationsKey].
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req := m.buildRequest(input, opts...)

	data, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", m.cfg.BaseURL, m.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", m.cfg.APIKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call gemini api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var out response
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return out.toMessage(), nil
}

// Stream has no incremental mode; it yields the full reply as one chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported; grounding is the only tool this adapter speaks.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return errors.New("gemini adapter does not support function tools")
}

// GetType reports the component type for eino callbacks.
func (m *ChatModel) GetType() string {
	return "Gemini"
}

func (m *ChatModel) buildRequest(input []*schema.Message, opts ...model.Option) *request {
	common := model.GetCommonOptions(&model.Options{
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		MaxTokens:   m.cfg.MaxOutputTokens,
	}, opts...)
	specific := model.GetImplSpecificOptions(&options{GoogleSearch: &m.cfg.GoogleSearch}, opts...)

	req := &request{Contents: make([]content, 0, len(input))}

	var system []string
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}

	if specific.GoogleSearch != nil && *specific.GoogleSearch {
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	if common.Temperature != nil || common.TopP != nil || common.MaxTokens != nil {
		req.GenerationConfig = &generationConfig{
			Temperature:     common.Temperature,
			TopP:            common.TopP,
			MaxOutputTokens: common.MaxTokens,
		}
	}
	return req
}

// toMessage flattens the first candidate. A response without candidates maps
// to an empty assistant message rather than an error.
func (r *response) toMessage() *schema.Message {
	msg := &schema.Message{Role: schema.Assistant}
	citations := []chat.Citation{}

	if len(r.Candidates) > 0 {
		cand := r.Candidates[0]

		var text strings.Builder
		for _, p := range cand.Content.Parts {
			if p.Thought {
				continue
			}
			text.WriteString(p.Text)
		}
		msg.Content = text.String()

		if cand.GroundingMetadata != nil {
			for _, chunk := range cand.GroundingMetadata.GroundingChunks {
				if chunk.Web == nil || chunk.Web.URI == "" {
					continue
				}
				citations = append(citations, chat.Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
			}
		}

		msg.ResponseMeta = &schema.ResponseMeta{FinishReason: cand.FinishReason}
	}

	if r.UsageMetadata != nil {
		if msg.ResponseMeta == nil {
			msg.ResponseMeta = &schema.ResponseMeta{}
		}
		msg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     r.UsageMetadata.PromptTokenCount,
			CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      r.UsageMetadata.TotalTokenCount,
		}
	}

	msg.Extra = map[string]any{chat.ExtraCitationsKey: citations}
	return msg
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var env errorEnvelope
	if err := sonic.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Status = env.Error.Status
		apiErr.Message = env.Error.Message
	}
	return apiErr
}
