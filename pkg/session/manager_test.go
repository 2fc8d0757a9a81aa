package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, store Store, options ...Option) (*Manager, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	ids := 0
	options = append([]Option{WithIDGenerator(func() string {
		ids++
		return "s-" + string(rune('0'+ids))
	})}, options...)
	m := NewManager(store, options...)
	m.now = c.Now
	return m, c
}

func TestManager_CreateDoAndRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	m, c := newTestManager(t, store, WithIdleTimeout(time.Minute))

	id, err := m.Create(ctx, testsupport.MustFormData(t, testsupport.FixtureKYB), "de")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "s-1" {
		t.Fatalf("unexpected id %q", id)
	}

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if err := e.SetFieldValue("company_name", "Acme"); err != nil {
			return err
		}
		if err := e.SetFieldValue("country", "NG"); err != nil {
			return err
		}
		ok, err := e.Advance(ctx)
		if !ok {
			t.Fatalf("expected advance, errors %v", e.Errors())
		}
		return err
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	c.Advance(2 * time.Minute)
	if evicted := m.Sweep(); evicted != 1 || m.Len() != 0 {
		t.Fatalf("expected eviction, got %d (len %d)", evicted, m.Len())
	}

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if e.CurrentStep() != 2 || !e.IsCompleted(1) {
			t.Fatalf("expected restored resume point, got step %d completed %v", e.CurrentStep(), e.CompletedSteps())
		}
		if e.Locale() != "de" {
			t.Fatalf("expected locale to survive restore, got %q", e.Locale())
		}
		if value, _ := e.Value("company_name"); value != "Acme" {
			t.Fatalf("expected restored value, got %#v", value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do after restore: %v", err)
	}
}

func TestManager_DoReturnsCallbackErrorAndCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	m, _ := newTestManager(t, store)

	id, err := m.Create(ctx, testsupport.MustFormData(t, testsupport.FixtureContact), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		_ = e.SetFieldValue("name", "Ada")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	checkpoint, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if checkpoint.Form.ExistingData["name"] != "Ada" {
		t.Fatalf("expected checkpoint to include the change, got %v", checkpoint.Form.ExistingData)
	}
}

func TestManager_PendingUploadsAreNotCheckpointed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	m, _ := newTestManager(t, store)

	data := testsupport.MustFormData(t, testsupport.FixtureKYB)
	data.CurrentStep = 3
	data.ExistingData = map[string]any{
		"supporting_documents": []model.FileDescriptor{{ID: "f-1", Name: "a.pdf"}},
	}
	id, err := m.Create(ctx, data, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if err := e.SetFieldValue("certificate", model.LocalFile{Name: "cert.pdf"}); err != nil {
			return err
		}
		return e.SetFieldValue("supporting_documents", []any{
			model.FileDescriptor{ID: "f-1", Name: "a.pdf"},
			model.LocalFile{Name: "b.pdf"},
		})
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	checkpoint, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]any{
		"supporting_documents": []any{model.FileDescriptor{ID: "f-1", Name: "a.pdf"}},
	}
	if diff := cmp.Diff(want, checkpoint.Form.ExistingData); diff != "" {
		t.Fatalf("checkpoint values mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_SubmittedSessionDropsCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	m, _ := newTestManager(t, store, WithEngineOptions(engine.WithSubmitter(
		engine.SubmitterFunc(func(context.Context, engine.Submission) (engine.SubmitResult, error) {
			return engine.SubmitResult{SubmissionID: "sub-9"}, nil
		}),
	)))

	id, err := m.Create(ctx, testsupport.MustFormData(t, testsupport.FixtureContact), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		for name, value := range map[string]any{"name": "Ada", "email": "ada@example.com", "message": "Hi"} {
			if err := e.SetFieldValue(name, value); err != nil {
				return err
			}
		}
		_, err := e.Submit(ctx, false)
		return err
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected checkpoint to be dropped, got %v", err)
	}
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if e.Status() != engine.StatusSubmitted || e.SubmissionID() != "sub-9" {
			t.Fatalf("expected submitted session in memory, got %s", e.Status())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do after submit: %v", err)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Do(ctx, id, func(*engine.Engine) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestManager_ReopenAfterDraft(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil, WithEngineOptions(engine.WithSubmitter(
		engine.SubmitterFunc(func(context.Context, engine.Submission) (engine.SubmitResult, error) {
			return engine.SubmitResult{SubmissionID: "draft-1"}, nil
		}),
	)))

	id, err := m.Create(ctx, testsupport.MustFormData(t, testsupport.FixtureContact), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		_ = e.SetFieldValue("name", "Ada")
		_, err := e.Submit(ctx, true)
		return err
	})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	if err := m.Reopen(ctx, id); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if e.Status() != engine.StatusEditing || e.SubmissionID() != "draft-1" {
			t.Fatalf("expected editable session bound to the draft, got %s %q", e.Status(), e.SubmissionID())
		}
		if value, _ := e.Value("name"); value != "Ada" {
			t.Fatalf("expected draft values, got %#v", value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestManager_RestoreKeepsClearedFieldsAndDraftStatus(t *testing.T) {
	ctx := context.Background()
	m, c := newTestManager(t, NewMemoryStore(0), WithIdleTimeout(time.Minute), WithEngineOptions(engine.WithSubmitter(
		engine.SubmitterFunc(func(context.Context, engine.Submission) (engine.SubmitResult, error) {
			return engine.SubmitResult{SubmissionID: "draft-7"}, nil
		}),
	)))

	data := model.FormData{
		FormDefinition: model.FormDefinition{ID: "notes"},
		Fields: []model.FormField{
			{FieldName: "note", FieldType: model.FieldTypeText, DefaultValue: "preset"},
		},
	}
	id, err := m.Create(ctx, data, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if err := e.ClearFieldValue("note"); err != nil {
			return err
		}
		_, err := e.Submit(ctx, true)
		return err
	})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	c.Advance(2 * time.Minute)
	if evicted := m.Sweep(); evicted != 1 {
		t.Fatalf("expected eviction, got %d", evicted)
	}

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if value, present := e.Value("note"); present {
			t.Fatalf("expected cleared field to stay cleared, got %#v", value)
		}
		if e.Status() != engine.StatusDraftSaved || e.SubmissionID() != "draft-7" {
			t.Fatalf("expected restored draft, got %s %q", e.Status(), e.SubmissionID())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do after restore: %v", err)
	}

	if err := m.Reopen(ctx, id); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if e.Status() != engine.StatusEditing {
			t.Fatalf("expected editable session, got %s", e.Status())
		}
		if _, present := e.Value("note"); present {
			t.Fatalf("expected reopen to keep the field cleared")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do after reopen: %v", err)
	}
}

func TestManager_SerialisesAccess(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)

	id, err := m.Create(ctx, testsupport.MustFormData(t, testsupport.FixtureKYB), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(ctx, id, func(e *engine.Engine) error {
				current, _ := e.Value("owner_share")
				n, _ := current.(float64)
				return e.SetFieldValue("owner_share", n+1)
			})
		}()
	}
	wg.Wait()

	err = m.Do(ctx, id, func(e *engine.Engine) error {
		if value, _ := e.Value("owner_share"); value != float64(workers) {
			t.Fatalf("expected %d serialized increments, got %#v", workers, value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestManager_UnknownSession(t *testing.T) {
	m, _ := newTestManager(t, nil)
	err := m.Do(context.Background(), "missing", func(*engine.Engine) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
