package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sacrifice-website/realtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "wss://abc.supabase.co/realtime/v1/websocket?apikey=key&vsn=1.0.0",
		websocketURL("https://abc.supabase.co/", "key"))
	assert.Equal(t, "ws://localhost:54321/realtime/v1/websocket?apikey=key&vsn=1.0.0",
		websocketURL("http://localhost:54321", "key"))
}

func TestListener_Dispatch(t *testing.T) {
	rec := &recorder{}
	l := NewListener("http://localhost", "key", []string{"sacrifice_animals"}, rec, nil)

	tests := []struct {
		name  string
		frame string
		want  *realtime.Event
	}{
		{
			name: "postgres_changes frame",
			frame: `{"topic":"realtime:public:sacrifice_animals","event":"postgres_changes","ref":null,
				"payload":{"data":{"schema":"public","table":"sacrifice_animals","type":"UPDATE",
				"record":{"sacrifice_id":"a1","empty_share":3},"old_record":{"sacrifice_id":"a1"},
				"commit_timestamp":"2026-06-16T08:00:00Z"}}}`,
			want: &realtime.Event{
				Table:      "sacrifice_animals",
				Type:       realtime.EventUpdate,
				Record:     map[string]any{"sacrifice_id": "a1", "empty_share": float64(3)},
				OldRecord:  map[string]any{"sacrifice_id": "a1"},
				CommitTime: time.Date(2026, 6, 16, 8, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "legacy per-event frame",
			frame: `{"topic":"realtime:public:stage_metrics","event":"INSERT","ref":null,
				"payload":{"table":"stage_metrics","record":{"stage":"slaughter_stage"}}}`,
			want: &realtime.Event{
				Table:  "stage_metrics",
				Type:   realtime.EventInsert,
				Record: map[string]any{"stage": "slaughter_stage"},
			},
		},
		{name: "join reply is ignored", frame: `{"topic":"realtime:public:x","event":"phx_reply","ref":"1","payload":{"status":"ok","response":{}}}`},
		{name: "garbage is ignored", frame: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(rec.snapshot())
			l.dispatch([]byte(tt.frame))
			events := rec.snapshot()

			if tt.want == nil {
				assert.Len(t, events, before)
				return
			}
			require.Len(t, events, before+1)
			assert.Equal(t, *tt.want, events[len(events)-1])
		})
	}
}

func TestListener_JoinsAndForwardsChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	joined := make(chan string, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["event"] != "phx_join" {
				continue
			}
			topic, _ := msg["topic"].(string)
			joined <- topic

			conn.WriteJSON(map[string]any{
				"topic": topic, "event": "phx_reply", "ref": msg["ref"],
				"payload": map[string]any{"status": "ok", "response": map[string]any{}},
			})
			conn.WriteJSON(map[string]any{
				"topic": topic, "event": "postgres_changes", "ref": nil,
				"payload": map[string]any{"data": map[string]any{
					"table": strings.TrimPrefix(topic, "realtime:public:"), "type": "INSERT",
					"record": map[string]any{"id": 1},
				}},
			})
		}
	}))
	defer server.Close()

	rec := &recorder{}
	l := NewListener(server.URL, "key", []string{"stage_metrics"}, rec, nil)
	l.Start(context.Background())
	defer l.Stop()

	select {
	case topic := <-joined:
		assert.Equal(t, "realtime:public:stage_metrics", topic)
	case <-time.After(5 * time.Second):
		t.Fatal("listener never joined")
	}

	assert.Eventually(t, func() bool {
		for _, e := range rec.snapshot() {
			if e.Table == "stage_metrics" && e.Type == realtime.EventInsert {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}
