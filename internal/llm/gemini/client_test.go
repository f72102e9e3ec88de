package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

type capturedRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.APIKey = r.Header.Get("X-Goog-Api-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.Body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestModel(t *testing.T, baseURL string, grounding bool) *ChatModel {
	t.Helper()
	m, err := NewChatModel(&Config{
		APIKey:       "test-key",
		Model:        "gemini-test",
		BaseURL:      baseURL + "/",
		GoogleSearch: grounding,
	})
	require.NoError(t, err)
	return m
}

func TestGenerateSendsTurnsSystemAndSearchTool(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "Check "}, {"text": "WP_DEBUG"}]},
			"finishReason": "STOP"
		}]
	}`)
	m := newTestModel(t, srv.URL, true)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be helpful"),
		schema.AssistantMessage("Hello!", nil),
		schema.UserMessage("site is blank"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-test:generateContent", captured.Path)
	assert.Equal(t, "test-key", captured.APIKey)

	contents := captured.Body["contents"].([]any)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].(map[string]any)["role"])
	assert.Equal(t, "user", contents[1].(map[string]any)["role"])

	system := captured.Body["systemInstruction"].(map[string]any)
	assert.Equal(t, "be helpful", system["parts"].([]any)[0].(map[string]any)["text"])

	tools := captured.Body["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].(map[string]any), "google_search")

	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "Check WP_DEBUG", msg.Content)
	assert.Equal(t, "STOP", msg.ResponseMeta.FinishReason)
	assert.Empty(t, msg.Extra[chat.ExtraCitationsKey])
}

func TestGenerateExtractsCitationsInOrder(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"parts": [{"text": "thinking", "thought": true}, {"text": "Raise WP_MEMORY_LIMIT."}]},
			"groundingMetadata": {"groundingChunks": [
				{"web": {"uri": "https://wp.org/x", "title": "X"}},
				{"retrievedContext": {"uri": "ignored"}},
				{"web": {"uri": "https://developer.wordpress.org/y"}}
			]}
		}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
	}`)
	m := newTestModel(t, srv.URL, true)

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("memory")})
	require.NoError(t, err)

	assert.Equal(t, "Raise WP_MEMORY_LIMIT.", msg.Content)
	assert.Equal(t, []chat.Citation{
		{URL: "https://wp.org/x", Title: "X"},
		{URL: "https://developer.wordpress.org/y"},
	}, msg.Extra[chat.ExtraCitationsKey])
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)
}

func TestGenerateWithoutCandidatesReturnsEmptyText(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"candidates": []}`)
	m := newTestModel(t, srv.URL, false)

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
}

func TestGenerateOmitsToolWhenGroundingDisabled(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"candidates": []}`)
	m := newTestModel(t, srv.URL, true)

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, WithGoogleSearch(false))
	require.NoError(t, err)
	assert.NotContains(t, captured.Body, "tools")
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusForbidden, `{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`)
	m := newTestModel(t, srv.URL, true)

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
	assert.Equal(t, "API key not valid", apiErr.Message)
}

func TestStreamYieldsSingleChunk(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"candidates": [{"content": {"parts": [{"text": "done"}]}}]}`)
	m := newTestModel(t, srv.URL, false)

	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "done", chunk.Content)
}

func TestNewChatModelValidates(t *testing.T) {
	_, err := NewChatModel(&Config{Model: "m"})
	assert.Error(t, err)
	_, err = NewChatModel(&Config{APIKey: "k"})
	assert.Error(t, err)
}
