// Package session hosts engine sessions for servers. An engine is not safe
// for concurrent use, so every access goes through Manager.Do, which holds a
// per-session lock and checkpoints the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/engine"
	flowlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/model"
)

type entry struct {
	mu       sync.Mutex
	engine   *engine.Engine
	locale   string
	lastUsed time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngineOptions applies collaborators (submitter, option source, logger)
// to every engine the manager creates or restores.
func WithEngineOptions(options ...engine.Option) Option {
	return func(m *Manager) {
		m.engineOptions = append(m.engineOptions, options...)
	}
}

// WithIdleTimeout evicts in-memory sessions idle for longer than d. Evicted
// sessions are restored from the store on next use.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idle = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// Manager owns live sessions and their checkpoints.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	store         Store
	engineOptions []engine.Option
	idle          time.Duration
	newID         func() string
	now           func() time.Time
	logger        *logrus.Entry
}

// NewManager returns a manager backed by store. A nil store keeps
// checkpoints in memory.
func NewManager(store Store, options ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore(0)
	}
	m := &Manager{
		sessions: make(map[string]*entry),
		store:    store,
		idle:     30 * time.Minute,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   flowlog.Discard(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create starts a session for data and returns its id.
func (m *Manager) Create(ctx context.Context, data model.FormData, locale string) (string, error) {
	id := m.newID()
	e := &entry{
		engine:   engine.New(data, m.optionsFor(locale)...),
		locale:   locale,
		lastUsed: m.now(),
	}
	if err := m.checkpoint(ctx, id, e); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{"session": id, "form_id": data.FormDefinition.ID}).Info("session created")
	return id, nil
}

// Do runs fn with exclusive access to the session's engine and checkpoints
// the engine afterwards, even when fn fails.
func (m *Manager) Do(ctx context.Context, id string, fn func(*engine.Engine) error) error {
	e, err := m.lookup(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fnErr := fn(e.engine)
	e.lastUsed = m.now()
	if err := m.checkpoint(ctx, id, e); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// Reopen replaces a closed session (draft saved or submitted) with a fresh
// editable engine started from its snapshot.
func (m *Manager) Reopen(ctx context.Context, id string) error {
	e, err := m.lookup(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine.Status() == engine.StatusEditing {
		return nil
	}
	e.engine = engine.Restore(e.engine.Snapshot(), engine.StatusEditing, e.engine.ClearedFields(), m.optionsFor(e.locale)...)
	e.lastUsed = m.now()
	return m.checkpoint(ctx, id, e)
}

// Delete forgets a session and its checkpoint.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return m.store.Delete(ctx, id)
}

// Len reports the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts idle in-memory sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	if evicted > 0 {
		m.logger.WithField("evicted", evicted).Debug("idle sessions evicted")
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) lookup(ctx context.Context, id string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	checkpoint, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	restored := &entry{
		engine:   engine.Restore(checkpoint.Form, checkpoint.Status, checkpoint.Cleared, m.optionsFor(checkpoint.Locale)...),
		locale:   checkpoint.Locale,
		lastUsed: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = restored
	m.logger.WithField("session", id).Debug("session restored from checkpoint")
	return restored, nil
}

func (m *Manager) optionsFor(locale string) []engine.Option {
	options := append([]engine.Option(nil), m.engineOptions...)
	if locale != "" {
		options = append(options, engine.WithLocale(locale))
	}
	return options
}

// checkpoint must be called with e.mu held or before e is published.
func (m *Manager) checkpoint(ctx context.Context, id string, e *entry) error {
	if e.engine.Status() == engine.StatusSubmitted {
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("session: drop submitted checkpoint: %w", err)
		}
		return nil
	}

	snapshot := e.engine.Snapshot()
	snapshot.ExistingData = portableValues(snapshot.ExistingData)
	if err := m.store.Save(ctx, Checkpoint{
		ID:        id,
		Locale:    e.locale,
		Status:    e.engine.Status(),
		Cleared:   e.engine.ClearedFields(),
		Form:      snapshot,
		UpdatedAt: m.now(),
	}); err != nil {
		m.logger.WithError(err).WithField("session", id).Warn("checkpoint failed")
		return fmt.Errorf("session: checkpoint: %w", err)
	}
	return nil
}
