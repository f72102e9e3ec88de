package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
)

type fakeGenerator struct {
	block chan struct{}
	err   error
}

func (g *fakeGenerator) Generate(ctx context.Context, text string, _ []chat.HistoryEntry) (chat.Reply, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return chat.Reply{}, ctx.Err()
		}
	}
	if g.err != nil {
		return chat.Reply{}, g.err
	}
	return chat.Reply{
		Text:      "Re: " + text,
		Citations: []chat.Citation{{URL: "https://wp.org/x", Title: "X"}},
	}, nil
}

func setupRouter(t *testing.T, gen chatService.Generator) (*chi.Mux, *chatService.Service) {
	t.Helper()
	chatSvc := chatService.NewService(gen, nil, chatService.Options{})
	t.Cleanup(chatSvc.Close)
	presets := preset.NewMemoryStore(preset.Seed(), preset.SeedLinks())

	r := chi.NewRouter()
	New(chatSvc, presets, view.NewPresenter(nil, nil), nil).RegisterRoutes(r)
	return r, chatSvc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) view.Snapshot {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var snap view.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	return snap
}

func decodeSubmit(t *testing.T, resp *httptest.ResponseRecorder) submitResponse {
	t.Helper()
	var out submitResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestCreateSessionStartsWithWelcome(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)

	require.Len(t, snap.Turns, 1)
	assert.Equal(t, chat.SpeakerAssistant, snap.Turns[0].Speaker)
	assert.Equal(t, chatService.WelcomeMessage, snap.Turns[0].Text)
	assert.NotEmpty(t, snap.Turns[0].HTML)
	assert.False(t, snap.Pending)
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	resp := do(t, r, http.MethodGet, "/session/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, resp.Body.String())
}

func TestSubmitAndWait(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/session/"+snap.ID+"/messages", submitRequest{Text: "site is blank", Wait: true})
	require.Equal(t, http.StatusOK, resp.Code)

	out := decodeSubmit(t, resp)
	assert.True(t, out.Accepted)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Re: site is blank", out.Reply.Text)
	require.Len(t, out.Reply.Citations, 1)
	assert.Equal(t, "X", out.Reply.Citations[0].DisplayTitle)

	require.Len(t, out.Snapshot.Turns, 3)
	assert.False(t, out.Snapshot.Pending)
}

func TestSubmitErrorBecomesErrorTurn(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{err: errors.New("boom")})
	snap := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/session/"+snap.ID+"/messages", submitRequest{Text: "help", Wait: true})
	require.Equal(t, http.StatusOK, resp.Code)

	out := decodeSubmit(t, resp)
	require.NotNil(t, out.Reply)
	assert.Equal(t, chatService.ErrorMessage, out.Reply.Text)
	assert.False(t, out.Snapshot.Pending)
}

func TestSubmitBlankIsIgnored(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/session/"+snap.ID+"/messages", submitRequest{Text: "   "})
	require.Equal(t, http.StatusOK, resp.Code)

	out := decodeSubmit(t, resp)
	assert.False(t, out.Accepted)
	assert.Len(t, out.Snapshot.Turns, 1)
}

func TestSubmitWhilePending(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	r, _ := setupRouter(t, gen)
	snap := createSession(t, r)
	path := "/session/" + snap.ID + "/messages"

	resp := do(t, r, http.MethodPost, path, submitRequest{Text: "one"})
	require.Equal(t, http.StatusAccepted, resp.Code)
	first := decodeSubmit(t, resp)
	assert.True(t, first.Accepted)
	assert.True(t, first.Snapshot.Pending)

	resp = do(t, r, http.MethodPost, path, submitRequest{Text: "two"})
	require.Equal(t, http.StatusOK, resp.Code)
	second := decodeSubmit(t, resp)
	assert.False(t, second.Accepted)
	assert.Len(t, second.Snapshot.Turns, 2)

	close(gen.block)
}

func TestSubmitInvalidBody(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/session/"+snap.ID+"/messages", bytes.NewBufferString("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitPreset(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/session/"+snap.ID+"/presets/memory-limit?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	out := decodeSubmit(t, resp)
	require.Len(t, out.Snapshot.Turns, 3)
	assert.Equal(t, "I'm experiencing: Memory Limit", out.Snapshot.Turns[1].Text)

	resp = do(t, r, http.MethodPost, "/session/"+snap.ID+"/presets/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDraftResetAndDelete(t *testing.T) {
	r, _ := setupRouter(t, &fakeGenerator{})
	snap := createSession(t, r)
	base := "/session/" + snap.ID

	resp := do(t, r, http.MethodPut, base+"/draft", map[string]string{"text": "my site"})
	require.Equal(t, http.StatusOK, resp.Code)
	var drafted view.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &drafted))
	assert.Equal(t, "my site", drafted.Draft)

	do(t, r, http.MethodPost, base+"/messages", submitRequest{Text: "hello", Wait: true})

	resp = do(t, r, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var reset view.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reset))
	require.Len(t, reset.Turns, 1)
	assert.Equal(t, chatService.WelcomeMessage, reset.Turns[0].Text)

	resp = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
