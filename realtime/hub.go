// Package realtime fans backend change events out to in-process caches.
package realtime

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// AllTables subscribes to every table.
const AllTables = "*"

// Event is a row change on a backend table.
type Event struct {
	Table      string         `json:"table"`
	Type       EventType      `json:"type"`
	Record     map[string]any `json:"record,omitempty"`
	OldRecord  map[string]any `json:"old_record,omitempty"`
	CommitTime time.Time      `json:"commit_timestamp"`
}

type Handler func(Event)

type Publisher interface {
	Publish(event Event)
}

type Subscriber interface {
	Subscribe(table string, handler Handler) (cancel func())
}

// Hub delivers published events synchronously to table subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[uint64]Handler),
		logger: logger,
	}
}

func (h *Hub) Subscribe(table string, handler Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[table] == nil {
		h.subs[table] = make(map[uint64]Handler)
	}
	h.subs[table][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[table], id)
			if len(h.subs[table]) == 0 {
				delete(h.subs, table)
			}
		})
	}
}

func (h *Hub) Publish(event Event) {
	if event.CommitTime.IsZero() {
		event.CommitTime = time.Now().UTC()
	}

	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[event.Table])+len(h.subs[AllTables]))
	for _, fn := range h.subs[event.Table] {
		handlers = append(handlers, fn)
	}
	for _, fn := range h.subs[AllTables] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		h.deliver(fn, event)
	}
}

func (h *Hub) deliver(fn Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("realtime handler panicked",
				"table", event.Table,
				"type", event.Type,
				"panic", r,
			)
		}
	}()
	fn(event)
}

// Subscribers returns the number of handlers registered for a table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
