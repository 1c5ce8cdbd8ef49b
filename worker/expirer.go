package worker

import (
	"context"
	"log/slog"
	"sacrifice-website/metrics"
	"sync"
	"time"
)

// MaxIdleInterval caps the idle back-off. Shares held by an expired
// reservation stay unavailable for at most this long past expires_at.
const MaxIdleInterval = time.Minute

// OverdueExpirer expires reservations whose checkout window has passed
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// Expirer releases shares held by abandoned checkouts. It polls quickly
// while it keeps finding work and backs off when idle.
type Expirer struct {
	svc             OverdueExpirer
	baseInterval    time.Duration
	maxInterval     time.Duration
	currentInterval time.Duration
	timeout         time.Duration
	now             func() time.Time
	logger          *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewExpirer(svc OverdueExpirer, baseInterval, maxInterval time.Duration, logger *slog.Logger) *Expirer {
	if logger == nil {
		logger = slog.Default()
	}
	maxInterval = min(maxInterval, MaxIdleInterval)
	if maxInterval < baseInterval {
		maxInterval = baseInterval
	}
	return &Expirer{
		svc:             svc,
		baseInterval:    baseInterval,
		maxInterval:     maxInterval,
		currentInterval: baseInterval,
		timeout:         30 * time.Second,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger.With("component", "expirer"),
	}
}

// Start begins the background loop
func (e *Expirer) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})

	e.logger.Info("Starting reservation expirer", "interval", e.baseInterval)
	go e.run(e.stopChan, e.done)
}

// Stop ends the loop and waits for an in-flight pass to finish
func (e *Expirer) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	close(e.stopChan)
	done := e.done
	e.running = false
	e.mu.Unlock()

	<-done
	e.logger.Info("Reservation expirer stopped")
}

func (e *Expirer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.currentInterval)
	defer ticker.Stop()

	// Run immediately on start
	e.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			hadWork := e.RunOnce(context.Background())

			e.mu.Lock()
			next := e.maxInterval
			if hadWork {
				next = e.baseInterval
			}
			if next != e.currentInterval {
				e.currentInterval = next
				ticker.Reset(next)
				e.logger.Debug("Expirer interval changed", "interval", next)
			}
			e.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// RunOnce expires everything overdue right now and reports whether
// anything was expired.
func (e *Expirer) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	n, err := e.svc.ExpireOverdue(ctx, e.now())
	metrics.RecordExpired(n)
	if err != nil {
		e.logger.Error("Failed to expire overdue reservations", "expired", n, "error", err)
		return n > 0
	}
	if n > 0 {
		e.logger.Info("Expired overdue reservations", "count", n)
	}
	return n > 0
}

// Interval is the current polling interval
func (e *Expirer) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentInterval
}
