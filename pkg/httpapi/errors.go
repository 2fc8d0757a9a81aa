package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moogar0880/problems"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/transport"
)

const problemMediaType = "application/problem+json"

var (
	// ErrFormNotFound is returned by a FormSource that has no such form.
	ErrFormNotFound = errors.New("httpapi: form not found")
	// ErrUnknownRenderer is returned when a request names an unregistered renderer.
	ErrUnknownRenderer = errors.New("httpapi: unknown renderer")
)

// HTTPError is an error that carries its response status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError pairs an error with the status it should be reported as.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(kind)
	if detail != "" {
		problem = problem.WithDetail(detail)
	}

	w.Header().Set("Content-Type", problemMediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// writeError reports err as a problem document. Engine outcomes that carry
// session state (validation failures, blocked submits) are handled by the
// callers before reaching this point.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	detail := engine.UserMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusBadGateway {
		detail = http.StatusText(status)
	}
	writeProblem(w, r, status, kind, detail)
}

func classify(err error) (int, string) {
	var (
		httpErr   HTTPError
		apiErr    *transport.APIError
		uploadErr *transport.UploadError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.StatusCode(), "request_error"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ErrFormNotFound):
		return http.StatusNotFound, "form_not_found"
	case errors.Is(err, ErrUnknownRenderer):
		return http.StatusBadRequest, "unknown_renderer"
	case errors.Is(err, engine.ErrUnknownField):
		return http.StatusNotFound, "field_not_found"
	case errors.Is(err, engine.ErrStepOutOfRange):
		return http.StatusNotFound, "step_not_found"
	case errors.Is(err, engine.ErrSessionClosed):
		return http.StatusConflict, "session_closed"
	case errors.Is(err, engine.ErrIncompleteSteps):
		return http.StatusConflict, "incomplete_steps"
	case errors.Is(err, engine.ErrValidationFailed):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, engine.ErrNoSubmitter):
		return http.StatusNotImplemented, "no_submitter"
	case errors.As(err, &uploadErr):
		return http.StatusUnprocessableEntity, "upload_rejected"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, "backend_not_found"
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return http.StatusUnprocessableEntity, "backend_rejected"
		}
		return http.StatusBadGateway, "backend_error"
	default:
		var transportErr *engine.TransportError
		if errors.As(err, &transportErr) {
			return http.StatusBadGateway, "backend_error"
		}
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeGuardError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode() > 0 {
		status = httpErr.StatusCode()
	}
	kind := "forbidden"
	if status == http.StatusUnauthorized {
		kind = "unauthorized"
	}
	writeProblem(w, r, status, kind, http.StatusText(status))
}
