// Package messagelog appends conversation turns to the message log.
//
// Writes are best effort. A failed write is logged and counted but never
// changes the response the caller receives.
package messagelog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/metrics"
	"github.com/Victorugws/swift/internal/model/conversation"
)

// ErrWriteFailed wraps every store error returned by Record.
var ErrWriteFailed = errors.New("message log write failed")

// Store persists log records.
type Store interface {
	Append(ctx context.Context, rec conversation.LogRecord) error
}

// Logger writes records to a Store with a bounded timeout.
type Logger struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// Option customises a Logger.
type Option func(*Logger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithTimeout bounds each write.
func WithTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// NewLogger returns a Logger writing to store. A nil store discards.
func NewLogger(store Store, logger zerolog.Logger, opts ...Option) *Logger {
	if store == nil {
		store = DiscardStore{}
	}
	l := &Logger{
		store:   store,
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  logger.With().Str("component", "messagelog").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRecord stamps a record with the logger's clock.
func (l *Logger) NewRecord(userID string, role conversation.Role, content string) conversation.LogRecord {
	return conversation.NewLogRecord(userID, role, content, l.now())
}

// Record writes rec and reports the outcome.
func (l *Logger) Record(ctx context.Context, rec conversation.LogRecord) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("%w: %s turn: %w", ErrWriteFailed, rec.Role, err)
	}
	return nil
}

// Submit writes rec in the background. The write outlives cancellation of
// ctx and is tracked by pending so the request can wait for it. Failures are
// logged and dropped.
func (l *Logger) Submit(ctx context.Context, pending *Pending, rec conversation.LogRecord) {
	detached := context.WithoutCancel(ctx)
	write := func() {
		if err := l.Record(detached, rec); err != nil {
			metrics.LogWriteFailures.WithLabelValues(string(rec.Role)).Inc()
			l.logger.Warn().
				Err(err).
				Str("user_id", rec.UserID).
				Str("role", string(rec.Role)).
				Msg("dropping message log write")
		}
	}

	if pending == nil {
		go write()
		return
	}
	pending.track(write)
}

// Pending tracks the background writes started for one request.
type Pending struct {
	wg sync.WaitGroup
}

// NewPending returns an empty tracker.
func NewPending() *Pending {
	return &Pending{}
}

func (p *Pending) track(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked write has finished.
func (p *Pending) Wait() {
	p.wg.Wait()
}
