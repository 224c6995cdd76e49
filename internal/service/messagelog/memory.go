package messagelog

import (
	"context"
	"sync"

	"github.com/Victorugws/swift/internal/model/conversation"
)

// MemoryStore keeps records in process. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []conversation.LogRecord
}

// NewMemoryStore bootstraps an empty in-memory log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make([]conversation.LogRecord, 0, 16)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, rec conversation.LogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryStore) Records() []conversation.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]conversation.LogRecord, len(s.records))
	copy(copied, s.records)
	return copied
}

// ForUser returns the records attributed to userID in append order.
func (s *MemoryStore) ForUser(userID string) []conversation.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []conversation.LogRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// DiscardStore accepts and drops every record.
type DiscardStore struct{}

// Append implements Store.
func (DiscardStore) Append(context.Context, conversation.LogRecord) error { return nil }
