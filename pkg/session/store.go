package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session: not found")

// Checkpoint is the persisted resume point of a session. Form is an engine
// snapshot; pending uploads are not part of it. Cleared names fields whose
// default the user removed.
type Checkpoint struct {
	ID        string         `json:"id"`
	Locale    string         `json:"locale,omitempty"`
	Status    engine.Status  `json:"status,omitempty"`
	Cleared   []string       `json:"cleared,omitempty"`
	Form      model.FormData `json:"form"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store keeps checkpoints between requests and across restarts.
type Store interface {
	Save(ctx context.Context, checkpoint Checkpoint) error
	Load(ctx context.Context, id string) (Checkpoint, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store. Entries older than the TTL are
// treated as missing.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
	ttl         time.Duration
	now         func() time.Time
}

// NewMemoryStore returns an empty store. A zero ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]Checkpoint),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, checkpoint Checkpoint) error {
	if checkpoint.ID == "" {
		return errors.New("session: checkpoint id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpoint.ID] = checkpoint
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (Checkpoint, error) {
	s.mu.RLock()
	checkpoint, ok := s.checkpoints[id]
	s.mu.RUnlock()
	if !ok {
		return Checkpoint{}, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(checkpoint.UpdatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.checkpoints, id)
		s.mu.Unlock()
		return Checkpoint{}, ErrNotFound
	}
	return checkpoint, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, id)
	return nil
}

// portableValues drops pending uploads, whose readers cannot outlive the
// request that selected them.
func portableValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		switch typed := value.(type) {
		case model.LocalFile, []model.LocalFile:
			continue
		case []any:
			kept := make([]any, 0, len(typed))
			for _, item := range typed {
				if _, pending := item.(model.LocalFile); pending {
					continue
				}
				kept = append(kept, item)
			}
			if len(kept) > 0 {
				out[name] = kept
			}
		default:
			out[name] = value
		}
	}
	return out
}
