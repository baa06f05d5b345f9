package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/planloom/internal/domain"
)

// RecordingSink is an audit sink that keeps every entry in memory.
// Set Err to make Record fail after recording.
type RecordingSink struct {
	mu      sync.Mutex
	entries []domain.ChangeEntry
	Err     error
}

func (s *RecordingSink) Record(_ context.Context, e domain.ChangeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.Err
}

func (s *RecordingSink) Entries() []domain.ChangeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChangeEntry(nil), s.entries...)
}

// ByEntityType filters recorded entries.
func (s *RecordingSink) ByEntityType(t domain.EntityType) []domain.ChangeEntry {
	var out []domain.ChangeEntry
	for _, e := range s.Entries() {
		if e.EntityType == t {
			out = append(out, e)
		}
	}
	return out
}
