package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	flowlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitted  Status = "submitted"
	StatusDraftSaved Status = "draft_saved"
)

// Engine holds the state of one form session.
type Engine struct {
	data     model.FormData
	steps    []model.FormStep
	implicit bool

	values       model.Values
	current      int
	errors       map[string][]string
	completed    map[int]struct{}
	status       Status
	submissionID string
	resolved     map[string][]model.Option

	locale       string
	evaluator    visibility.Evaluator
	persister    StepPersister
	submitter    Submitter
	optionSource OptionSource
	fileDeleter  FileDeleter
	logger       *logrus.Entry
}

// New starts a session for data. The snapshot is seeded from field defaults
// overlaid with existing data; the step pointer starts at the resume point
// (clamped to the form) or 1.
func New(data model.FormData, options ...Option) *Engine {
	e := &Engine{
		data:         data,
		steps:        SortSteps(data.Steps),
		values:       model.SeedValues(data.Fields, data.ExistingData),
		errors:       make(map[string][]string),
		completed:    make(map[int]struct{}),
		status:       StatusEditing,
		submissionID: strings.TrimSpace(data.SubmissionID),
		resolved:     make(map[string][]model.Option),
		locale:       model.DefaultLocale,
		evaluator:    visibility.Default,
		logger:       flowlog.Discard(),
	}
	if len(e.steps) == 0 {
		e.steps = []model.FormStep{implicitStep(data.FormDefinition)}
		e.implicit = true
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}

	for _, progress := range data.StepProgress {
		if progress.Status != model.StepStatusCompleted {
			continue
		}
		if n := e.stepNumberFor(progress); n > 0 {
			e.completed[n] = struct{}{}
		}
	}

	e.current = 1
	if data.CurrentStep >= 1 {
		e.current = min(data.CurrentStep, len(e.steps))
	}

	e.logger.WithFields(logrus.Fields{
		"form_id":       data.FormDefinition.ID,
		"submission_id": e.submissionID,
		"steps":         len(e.steps),
		"current_step":  e.current,
	}).Debug("session started")

	return e
}

// Restore rebuilds a session from a Snapshot. Fields named in cleared stay
// absent even when they declare a default, and the lifecycle status carries
// over. An empty status means editing.
func Restore(data model.FormData, status Status, cleared []string, options ...Option) *Engine {
	e := New(data, options...)
	for _, name := range cleared {
		if _, kept := data.ExistingData[name]; !kept {
			delete(e.values, name)
		}
	}
	if status != "" {
		e.status = status
	}
	return e
}

func (e *Engine) stepNumberFor(progress model.StepProgress) int {
	if progress.FormStepID != "" {
		for _, step := range e.steps {
			if step.ID == progress.FormStepID {
				return step.StepNumber
			}
		}
	}
	if _, ok := e.Step(progress.StepNumber); ok {
		return progress.StepNumber
	}
	return 0
}

// Definition returns the form-level metadata.
func (e *Engine) Definition() model.FormDefinition {
	return e.data.FormDefinition
}

// Locale returns the locale used for labels.
func (e *Engine) Locale() string {
	return e.locale
}

// Status reports the lifecycle state.
func (e *Engine) Status() Status {
	return e.status
}

// SubmissionID returns the submission being edited, if any.
func (e *Engine) SubmissionID() string {
	return e.submissionID
}

// Steps returns the ordered steps.
func (e *Engine) Steps() []model.FormStep {
	out := make([]model.FormStep, len(e.steps))
	copy(out, e.steps)
	return out
}

// TotalSteps returns the number of steps.
func (e *Engine) TotalSteps() int {
	return len(e.steps)
}

// IsMultiStep reports whether the form has more than one step or was declared
// multi-step.
func (e *Engine) IsMultiStep() bool {
	return e.data.FormDefinition.IsMultiStep || len(e.steps) > 1
}

// Step returns the step with number n.
func (e *Engine) Step(n int) (model.FormStep, bool) {
	for _, step := range e.steps {
		if step.StepNumber == n {
			return step, true
		}
	}
	return model.FormStep{}, false
}

// CurrentStep returns the current step number.
func (e *Engine) CurrentStep() int {
	return e.current
}

// IsFirstStep reports whether the pointer is on step 1.
func (e *Engine) IsFirstStep() bool {
	return e.current <= 1
}

// IsLastStep reports whether the pointer is on the final step.
func (e *Engine) IsLastStep() bool {
	return e.current >= len(e.steps)
}

// Fields returns all declared fields in schema order.
func (e *Engine) Fields() []model.FormField {
	out := make([]model.FormField, len(e.data.Fields))
	copy(out, e.data.Fields)
	return out
}

// Field returns the field with the given name.
func (e *Engine) Field(name string) (model.FormField, bool) {
	return e.data.Field(name)
}

// StepFields returns every field of step n, visible or not, in display order.
func (e *Engine) StepFields(n int) []model.FormField {
	if e.implicit {
		if n != 1 {
			return nil
		}
		out := e.Fields()
		sortByDisplayOrder(out)
		return out
	}
	step, ok := e.Step(n)
	if !ok {
		return nil
	}
	return FieldsForStep(e.data.Fields, step)
}

// VisibleFields returns the fields of step n that are visible for the
// current snapshot.
func (e *Engine) VisibleFields(n int) []model.FormField {
	var out []model.FormField
	for _, field := range e.StepFields(n) {
		if e.evaluator.Visible(field, e.values) {
			out = append(out, field)
		}
	}
	return out
}

// CurrentFields returns the visible fields of the current step.
func (e *Engine) CurrentFields() []model.FormField {
	return e.VisibleFields(e.current)
}

// IsVisible evaluates a single field against the current snapshot.
func (e *Engine) IsVisible(field model.FormField) bool {
	return e.evaluator.Visible(field, e.values)
}

// Values returns a copy of the snapshot.
func (e *Engine) Values() model.Values {
	return e.values.Clone()
}

// Value returns the snapshot entry for name.
func (e *Engine) Value(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Errors returns a copy of the field error map.
func (e *Engine) Errors() map[string][]string {
	out := make(map[string][]string, len(e.errors))
	for name, msgs := range e.errors {
		out[name] = append([]string(nil), msgs...)
	}
	return out
}

// FieldErrors returns the messages recorded for name.
func (e *Engine) FieldErrors(name string) []string {
	return append([]string(nil), e.errors[name]...)
}

// HasErrors reports whether any field currently has errors.
func (e *Engine) HasErrors() bool {
	return len(e.errors) > 0
}

// CompletedSteps returns the completed step numbers in ascending order.
func (e *Engine) CompletedSteps() []int {
	out := make([]int, 0, len(e.completed))
	for n := range e.completed {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// IsCompleted reports whether step n was advanced past.
func (e *Engine) IsCompleted(n int) bool {
	_, ok := e.completed[n]
	return ok
}

// CanNavigateTo reports whether step n is reachable from the step list:
// completed steps and steps up to the current one.
func (e *Engine) CanNavigateTo(n int) bool {
	if _, ok := e.Step(n); !ok {
		return false
	}
	return e.IsCompleted(n) || n <= e.current
}

// CompletionPercentage derives progress from completed steps. It never
// reports less than the percentage the backend supplied at session start.
func (e *Engine) CompletionPercentage() int {
	pct := 0
	if total := len(e.steps); total > 0 {
		pct = len(e.completed) * 100 / total
	}
	if e.status == StatusSubmitted {
		pct = 100
	}
	return max(pct, min(e.data.CompletionPercentage, 100))
}

// SetFieldValue overwrites the snapshot entry for name and clears its errors.
// It does not validate.
func (e *Engine) SetFieldValue(name string, value any) error {
	if e.closed() {
		return ErrSessionClosed
	}
	e.values[name] = value
	delete(e.errors, name)
	for _, dependent := range e.DependentOptionFields(name) {
		delete(e.resolved, dependent)
	}
	return nil
}

// ClearFieldValue removes name from the snapshot and clears its errors.
func (e *Engine) ClearFieldValue(name string) error {
	if e.closed() {
		return ErrSessionClosed
	}
	delete(e.values, name)
	delete(e.errors, name)
	for _, dependent := range e.DependentOptionFields(name) {
		delete(e.resolved, dependent)
	}
	return nil
}

// ValidateStep validates the visible fields of step n into a fresh error
// map. Errors of hidden fields are dropped. It reports whether the step is
// free of errors.
func (e *Engine) ValidateStep(n int) bool {
	errs := make(map[string][]string)
	for _, field := range e.VisibleFields(n) {
		if msgs := validation.ValidateField(field, e.values[field.FieldName]); len(msgs) > 0 {
			errs[field.FieldName] = msgs
		}
	}
	e.errors = errs

	if len(errs) > 0 {
		e.logger.WithFields(logrus.Fields{
			"step":   n,
			"fields": len(errs),
		}).Debug("step validation failed")
	}
	return len(errs) == 0
}

// GoToStep moves the pointer to target. Forward moves validate the current
// step first and are refused on failure; backward moves always succeed.
// Targets outside the form are refused.
func (e *Engine) GoToStep(target int) bool {
	if e.closed() {
		return false
	}
	if target == e.current {
		return true
	}
	if _, ok := e.Step(target); !ok {
		return false
	}
	if target > e.current && !e.ValidateStep(e.current) {
		return false
	}
	e.current = target
	return true
}

// Advance validates the current step, marks it completed, hands its visible
// values to the StepPersister and moves to the next step. The pointer moves
// even when persistence fails; the persistence error is returned so the host
// can report it. On the final step the pointer stays put.
func (e *Engine) Advance(ctx context.Context) (bool, error) {
	if e.closed() {
		return false, ErrSessionClosed
	}
	if !e.ValidateStep(e.current) {
		return false, nil
	}

	step := e.current
	e.completed[step] = struct{}{}
	stepValues := e.stepValues(step)

	if e.current < len(e.steps) {
		e.current++
	}

	if err := e.persistStep(ctx, step, stepValues); err != nil {
		return true, err
	}
	return true, nil
}

func (e *Engine) stepValues(n int) model.Values {
	out := make(model.Values)
	for _, field := range e.VisibleFields(n) {
		if value, ok := e.values[field.FieldName]; ok {
			out[field.FieldName] = value
		}
	}
	return out
}

func (e *Engine) persistStep(ctx context.Context, step int, values model.Values) error {
	if e.persister == nil {
		return nil
	}
	err := e.persister.SaveStep(ctx, StepSave{
		FormID:       e.data.FormDefinition.ID,
		SubmissionID: e.submissionID,
		StepNumber:   step,
		Values:       values,
		Fields:       e.VisibleFields(step),
	})
	if err != nil {
		e.logger.WithError(err).WithField("step", step).Warn("step save failed")
		return &TransportError{Op: fmt.Sprintf("save step %d", step), Err: err}
	}
	e.logger.WithField("step", step).Debug("step saved")
	return nil
}

// Retreat moves back one step, never below 1.
func (e *Engine) Retreat() {
	if e.closed() {
		return
	}
	if e.current > 1 {
		e.current--
	}
}

// Submit sends the snapshot to the Submitter. Final submissions require the
// current step to validate and, for multi-step forms, every non-optional
// step to be completed or current. Drafts skip both checks. On failure the
// session stays editable and unchanged.
func (e *Engine) Submit(ctx context.Context, asDraft bool) (SubmitResult, error) {
	if e.closed() {
		return SubmitResult{}, ErrSessionClosed
	}

	valid := e.ValidateStep(e.current)
	if !asDraft {
		if !valid {
			return SubmitResult{}, ErrValidationFailed
		}
		if missing := e.missingSteps(); len(missing) > 0 {
			e.logger.WithField("missing_steps", missing).Debug("submit blocked by incomplete steps")
			return SubmitResult{}, ErrIncompleteSteps
		}
	}

	if e.submitter == nil {
		return SubmitResult{}, ErrNoSubmitter
	}

	op := "submit"
	if asDraft {
		op = "save draft"
	}
	result, err := e.submitter.Submit(ctx, Submission{
		FormID:       e.data.FormDefinition.ID,
		SubmissionID: e.submissionID,
		IsDraft:      asDraft,
		CurrentStep:  e.current,
		Values:       e.values.Clone(),
		Fields:       e.Fields(),
	})
	if err != nil {
		e.logger.WithError(err).WithField("draft", asDraft).Warn("submission failed")
		return SubmitResult{}, &TransportError{Op: op, Err: err}
	}

	if result.SubmissionID != "" {
		e.submissionID = result.SubmissionID
	}
	if asDraft {
		e.status = StatusDraftSaved
	} else {
		e.status = StatusSubmitted
	}
	e.logger.WithFields(logrus.Fields{
		"submission_id": e.submissionID,
		"status":        e.status,
	}).Info("submission accepted")
	return result, nil
}

// MissingSteps lists non-optional steps that are neither completed nor
// current. Only multi-step forms can have missing steps.
func (e *Engine) MissingSteps() []int {
	return e.missingSteps()
}

func (e *Engine) missingSteps() []int {
	if !e.IsMultiStep() {
		return nil
	}
	var missing []int
	for _, step := range e.steps {
		if step.IsOptional || step.StepNumber == e.current {
			continue
		}
		if !e.IsCompleted(step.StepNumber) {
			missing = append(missing, step.StepNumber)
		}
	}
	return missing
}

// Snapshot returns form data reflecting the session's current state, suitable
// for starting a fresh Engine (for example after a draft save).
func (e *Engine) Snapshot() model.FormData {
	data := e.data
	data.ExistingData = map[string]any(e.values.Clone())
	data.SubmissionID = e.submissionID
	data.CurrentStep = e.current
	data.CompletionPercentage = e.CompletionPercentage()

	progress := make([]model.StepProgress, 0, len(e.completed))
	for _, n := range e.CompletedSteps() {
		entry := model.StepProgress{StepNumber: n, Status: model.StepStatusCompleted}
		if step, ok := e.Step(n); ok {
			entry.FormStepID = step.ID
		}
		progress = append(progress, entry)
	}
	data.StepProgress = progress
	return data
}

// ClearedFields lists, in schema order, the fields that declare a default
// but are absent from the snapshot. Restore needs them to keep the default
// from coming back.
func (e *Engine) ClearedFields() []string {
	var out []string
	for _, field := range e.data.Fields {
		if _, ok := model.ParseDefaultValue(field.DefaultValue); !ok {
			continue
		}
		if _, present := e.values[field.FieldName]; !present {
			out = append(out, field.FieldName)
		}
	}
	return out
}

func (e *Engine) closed() bool {
	return e.status != StatusEditing
}
