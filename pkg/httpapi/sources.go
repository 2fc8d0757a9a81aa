package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/transport"
)

// CreateRequest is the body of POST /sessions. Form names the form to
// start; SubmissionID resumes an existing submission instead.
type CreateRequest struct {
	Form         string `json:"form" validate:"required_without=SubmissionID,max=128"`
	SubmissionID string `json:"submission_id" validate:"max=128"`
	Locale       string `json:"locale" validate:"max=16"`
}

// FormSource resolves the form data a new session starts from.
type FormSource interface {
	Form(ctx context.Context, req CreateRequest) (model.FormData, error)
}

// FormSourceFunc adapts a function to FormSource.
type FormSourceFunc func(ctx context.Context, req CreateRequest) (model.FormData, error)

// Form calls fn.
func (fn FormSourceFunc) Form(ctx context.Context, req CreateRequest) (model.FormData, error) {
	return fn(ctx, req)
}

var formExtensions = []string{".json", ".yaml", ".yml"}

// DirectorySource serves form documents stored as <name>.json, <name>.yaml
// or <name>.yml in files. Resuming a submission is not supported.
func DirectorySource(files fs.FS, options ...schema.DecodeOption) FormSource {
	return FormSourceFunc(func(_ context.Context, req CreateRequest) (model.FormData, error) {
		if req.SubmissionID != "" {
			return model.FormData{}, StatusError{
				Code: http.StatusBadRequest,
				Err:  errors.New("httpapi: this server cannot resume submissions"),
			}
		}
		name := strings.TrimSpace(req.Form)
		if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
			return model.FormData{}, fmt.Errorf("%w: %q", ErrFormNotFound, req.Form)
		}

		for _, ext := range formExtensions {
			file := name + ext
			raw, err := fs.ReadFile(files, file)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return model.FormData{}, fmt.Errorf("httpapi: read form %s: %w", file, err)
			}
			return schema.DecodeBytes(path.Base(file), raw, options...)
		}
		return model.FormData{}, fmt.Errorf("%w: %q", ErrFormNotFound, name)
	})
}

// BackendSource fetches forms from the form backend: a blank form (with the
// caller's progress) by type, or a stored submission for editing.
func BackendSource(client *transport.Client) FormSource {
	return FormSourceFunc(func(ctx context.Context, req CreateRequest) (model.FormData, error) {
		if client == nil {
			return model.FormData{}, errors.New("httpapi: backend client is nil")
		}
		if req.SubmissionID != "" {
			return client.SubmissionForEdit(ctx, req.SubmissionID)
		}
		return client.FormWithProgress(ctx, req.Form)
	})
}
