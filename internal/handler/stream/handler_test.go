package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, text string, _ []chat.HistoryEntry) (chat.Reply, error) {
	return chat.Reply{Text: "echo: " + text}, nil
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, scanner *bufio.Scanner) sseEvent {
	t.Helper()
	var ev sseEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			return ev
		}
	}
	t.Fatalf("stream ended: %v", scanner.Err())
	return ev
}

func setup(t *testing.T) (*httptest.Server, *chatService.Service) {
	t.Helper()
	chatSvc := chatService.NewService(echoGenerator{}, nil, chatService.Options{})
	t.Cleanup(chatSvc.Close)

	r := chi.NewRouter()
	New(chatSvc, view.NewPresenter(nil, nil), nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

func TestEventsStreamMutations(t *testing.T) {
	srv, chatSvc := setup(t)
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/session/"+session.ID()+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	first := readEvent(t, scanner)
	assert.Equal(t, "snapshot", first.name)

	done, ok := session.Submit(context.Background(), "site is blank")
	require.True(t, ok)
	<-done

	names := []string{}
	var last view.Event
	for i := 0; i < 4; i++ {
		ev := readEvent(t, scanner)
		names = append(names, ev.name)
		require.NoError(t, json.Unmarshal([]byte(ev.data), &last))
	}
	assert.Equal(t, []string{"turn_appended", "pending_changed", "turn_appended", "pending_changed"}, names)
	assert.False(t, last.Snapshot.Pending)
	require.Len(t, last.Snapshot.Turns, 3)
	assert.Equal(t, "echo: site is blank", last.Snapshot.Turns[2].Text)

	require.NoError(t, chatSvc.DeleteSession(context.Background(), session.ID()))
	assert.Equal(t, "closed", readEvent(t, scanner).name)
}

func TestEventsUnknownSession(t *testing.T) {
	srv, _ := setup(t)

	resp, err := http.Get(srv.URL + "/session/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
