package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sacrifice-website/realtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHeartbeat      = 30 * time.Second
	defaultReconnectDelay = 5 * time.Second
	maxReconnectDelay     = time.Minute
)

// phoenixMessage is the Phoenix channel envelope used by Supabase Realtime.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type changePayload struct {
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	Type            string         `json:"type"`
	Record          map[string]any `json:"record"`
	OldRecord       map[string]any `json:"old_record"`
	CommitTimestamp string         `json:"commit_timestamp"`
}

type replyPayload struct {
	Status   string         `json:"status"`
	Response map[string]any `json:"response"`
}

// Listener subscribes to postgres_changes for a set of tables and republishes
// them on a realtime.Publisher. It reconnects with backoff until stopped.
type Listener struct {
	wsURL     string
	apiKey    string
	tables    []string
	events    realtime.Publisher
	logger    *slog.Logger
	dialer    *websocket.Dialer
	heartbeat time.Duration
	reconnect time.Duration

	writeMu sync.Mutex
	ref     uint64

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewListener(projectURL, apiKey string, tables []string, events realtime.Publisher, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		wsURL:     websocketURL(projectURL, apiKey),
		apiKey:    apiKey,
		tables:    tables,
		events:    events,
		logger:    logger.With("component", "supabase_realtime"),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		heartbeat: defaultHeartbeat,
		reconnect: defaultReconnectDelay,
	}
}

func websocketURL(projectURL, apiKey string) string {
	base := strings.TrimRight(projectURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	return base + "/realtime/v1/websocket?" + q.Encode()
}

func topicFor(table string) string {
	return "realtime:public:" + table
}

// Start connects in the background.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopChan = make(chan struct{})
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.logger.Info("Starting realtime listener", "tables", l.tables)
	go l.run(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopChan)
	done := l.done
	l.mu.Unlock()

	<-done
	l.logger.Info("Realtime listener stopped")
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	delay := l.reconnect
	for {
		start := time.Now()
		err := l.session(ctx)

		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		// A connection that lived a while resets the backoff
		if time.Since(start) > maxReconnectDelay {
			delay = l.reconnect
		}
		l.logger.Warn("Realtime connection lost, reconnecting", "error", err, "delay", delay)

		select {
		case <-time.After(delay):
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// session runs one websocket connection until it fails or the listener stops.
func (l *Listener) session(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	for _, table := range l.tables {
		if err := l.join(conn, table); err != nil {
			return err
		}
	}

	// Changes may have been missed while disconnected
	l.resync()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-l.stopChan:
		case <-ctx.Done():
		case <-stopped:
			return
		}
		l.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.writeMu.Unlock()
		conn.Close()
	}()

	go l.heartbeatLoop(conn, stopped)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		l.dispatch(data)
	}
}

func (l *Listener) nextRef() string {
	l.ref++
	return strconv.FormatUint(l.ref, 10)
}

func (l *Listener) send(conn *websocket.Conn, topic, event string, payload any) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	ref := l.nextRef()
	msg := map[string]any{
		"topic":   topic,
		"event":   event,
		"payload": payload,
		"ref":     ref,
	}
	if event == "phx_join" {
		msg["join_ref"] = ref
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (l *Listener) join(conn *websocket.Conn, table string) error {
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": table},
			},
		},
		"access_token": l.apiKey,
	}
	return l.send(conn, topicFor(table), "phx_join", payload)
}

func (l *Listener) heartbeatLoop(conn *websocket.Conn, stopped <-chan struct{}) {
	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.send(conn, "phoenix", "heartbeat", map[string]any{}); err != nil {
				l.logger.Warn("Heartbeat failed", "error", err)
				return
			}
		case <-stopped:
			return
		}
	}
}

func (l *Listener) resync() {
	for _, table := range l.tables {
		l.events.Publish(realtime.Event{Table: table, Type: realtime.EventUpdate})
	}
}

func (l *Listener) dispatch(data []byte) {
	var msg phoenixMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		l.logger.Debug("Ignoring malformed realtime frame", "error", err)
		return
	}

	switch msg.Event {
	case "postgres_changes":
		var wrapper struct {
			Data changePayload `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &wrapper); err != nil {
			l.logger.Warn("Malformed postgres_changes payload", "error", err)
			return
		}
		l.publish(wrapper.Data)

	case "INSERT", "UPDATE", "DELETE":
		var change changePayload
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			l.logger.Warn("Malformed change payload", "error", err)
			return
		}
		if change.Type == "" {
			change.Type = msg.Event
		}
		l.publish(change)

	case "phx_reply":
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err == nil && reply.Status == "error" {
			l.logger.Error("Realtime channel rejected", "topic", msg.Topic, "response", reply.Response)
		}

	case "phx_error":
		l.logger.Error("Realtime channel error", "topic", msg.Topic)
	}
}

func (l *Listener) publish(change changePayload) {
	if change.Table == "" {
		return
	}

	event := realtime.Event{
		Table:     change.Table,
		Type:      realtime.EventType(strings.ToUpper(change.Type)),
		Record:    change.Record,
		OldRecord: change.OldRecord,
	}
	if ts, err := time.Parse(time.RFC3339Nano, change.CommitTimestamp); err == nil {
		event.CommitTime = ts.UTC()
	}

	l.events.Publish(event)
}
