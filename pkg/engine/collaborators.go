package engine

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
)

// StepSave is the payload handed to a StepPersister after a successful advance.
type StepSave struct {
	FormID       string
	SubmissionID string
	StepNumber   int
	Values       model.Values
	// Fields are the visible fields of the step, for encoders that need
	// types or upload limits.
	Fields []model.FormField
}

// StepPersister performs a best-effort save of one step's values.
type StepPersister interface {
	SaveStep(ctx context.Context, save StepSave) error
}

// StepPersisterFunc adapts a function into a StepPersister.
type StepPersisterFunc func(ctx context.Context, save StepSave) error

// SaveStep delegates to the underlying function.
func (fn StepPersisterFunc) SaveStep(ctx context.Context, save StepSave) error {
	return fn(ctx, save)
}

// Submission is the payload handed to a Submitter.
type Submission struct {
	FormID       string
	SubmissionID string
	IsDraft      bool
	CurrentStep  int
	Values       model.Values
	Fields       []model.FormField
}

// SubmitResult reports what the backend recorded.
type SubmitResult struct {
	SubmissionID string
	Status       string
	Message      string
}

// Submitter sends draft or final submissions.
type Submitter interface {
	Submit(ctx context.Context, submission Submission) (SubmitResult, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, submission Submission) (SubmitResult, error)

// Submit delegates to the underlying function.
func (fn SubmitterFunc) Submit(ctx context.Context, submission Submission) (SubmitResult, error) {
	return fn(ctx, submission)
}

// OptionSource resolves dynamic option lists by source name.
type OptionSource interface {
	Options(ctx context.Context, sourceName string, params map[string]string) ([]model.Option, error)
}

// OptionSourceFunc adapts a function into an OptionSource.
type OptionSourceFunc func(ctx context.Context, sourceName string, params map[string]string) ([]model.Option, error)

// Options delegates to the underlying function.
func (fn OptionSourceFunc) Options(ctx context.Context, sourceName string, params map[string]string) ([]model.Option, error) {
	return fn(ctx, sourceName, params)
}

// FileDeleter removes a previously uploaded file from a submission.
type FileDeleter interface {
	DeleteFile(ctx context.Context, submissionID, fileID string) error
}

// FileDeleterFunc adapts a function into a FileDeleter.
type FileDeleterFunc func(ctx context.Context, submissionID, fileID string) error

// DeleteFile delegates to the underlying function.
func (fn FileDeleterFunc) DeleteFile(ctx context.Context, submissionID, fileID string) error {
	return fn(ctx, submissionID, fileID)
}
