package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/transport"
)

const maxJSONBody = 1 << 20

// feedback is the outcome of one operation on a session. Field and form
// errors come from the backend and are reported alongside the session's own
// errors without being stored on the engine.
type feedback struct {
	status      int
	fieldErrors map[string][]string
	formErrors  []string
	notice      string
	err         error
}

func (f *feedback) addFormError(message string) {
	f.formErrors = render.MergeFormErrors(f.formErrors, message)
}

func (f *feedback) addFieldErrors(fields map[string][]string) {
	if len(fields) == 0 {
		return
	}
	if f.fieldErrors == nil {
		f.fieldErrors = make(map[string][]string, len(fields))
	}
	for name, messages := range fields {
		f.fieldErrors[name] = append(f.fieldErrors[name], messages...)
	}
}

func (f feedback) statusOr(fallback int) int {
	if f.status != 0 {
		return f.status
	}
	return fallback
}

// respond runs op on the session named in the path and writes the resulting
// state, or a problem document when op failed without session state.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op func(context.Context, *engine.Engine) feedback) {
	id := r.PathValue("id")

	var (
		state State
		fb    feedback
	)
	err := s.sessions.Do(r.Context(), id, func(session *engine.Engine) error {
		fb = op(r.Context(), session)
		state = stateOf(id, session)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if fb.err != nil {
		writeError(w, r, fb.err)
		return
	}

	for name, messages := range fb.fieldErrors {
		state.Errors[name] = append(state.Errors[name], messages...)
	}
	state.FormErrors = fb.formErrors
	state.Notice = fb.notice
	writeJSON(w, fb.statusOr(http.StatusOK), state)
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return io.EOF
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := decoder.Decode(out); err != nil {
		return StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("httpapi: decode body: %w", err)}
	}
	return nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Form = strings.TrimSpace(req.Form)
	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if err := s.validate.Struct(req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	data, err := s.forms.Form(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.sessions.Create(r.Context(), data, req.Locale)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var state State
	if err := s.sessions.Do(r.Context(), id, func(session *engine.Engine) error {
		state = stateOf(id, session)
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", s.sessionPath(id))
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func(context.Context, *engine.Engine) feedback {
		return feedback{}
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reopen(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Reopen(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.getState(w, r)
}

func (s *Server) setValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value any `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	name := r.PathValue("field")

	s.respond(w, r, func(_ context.Context, session *engine.Engine) feedback {
		if err := editableField(session, name); err != nil {
			return feedback{err: err}
		}
		var err error
		if body.Value == nil {
			err = session.ClearFieldValue(name)
		} else {
			err = session.SetFieldValue(name, body.Value)
		}
		return feedback{err: err}
	})
}

func (s *Server) clearValue(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("field")
	s.respond(w, r, func(_ context.Context, session *engine.Engine) feedback {
		if err := editableField(session, name); err != nil {
			return feedback{err: err}
		}
		return feedback{err: session.ClearFieldValue(name)}
	})
}

func editableField(session *engine.Engine, name string) error {
	field, ok := session.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", engine.ErrUnknownField, name)
	}
	if field.IsReadonly {
		return StatusError{Code: http.StatusConflict, Err: fmt.Errorf("field %q is read-only", name)}
	}
	return nil
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, advanceOp)
}

func advanceOp(ctx context.Context, session *engine.Engine) feedback {
	moved, err := session.Advance(ctx)
	if errors.Is(err, engine.ErrSessionClosed) {
		return feedback{err: err}
	}
	var fb feedback
	if err != nil {
		fb.addFormError(engine.UserMessage(err))
	}
	if !moved {
		fb.status = http.StatusUnprocessableEntity
	}
	return fb
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, retreatOp)
}

func retreatOp(_ context.Context, session *engine.Engine) feedback {
	if session.Status() != engine.StatusEditing {
		return feedback{err: engine.ErrSessionClosed}
	}
	session.Retreat()
	return feedback{}
}

func (s *Server) goToStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_request", "step must be a number")
		return
	}
	s.respond(w, r, func(_ context.Context, session *engine.Engine) feedback {
		return goToStepOp(session, step)
	})
}

func goToStepOp(session *engine.Engine, step int) feedback {
	if session.Status() != engine.StatusEditing {
		return feedback{err: engine.ErrSessionClosed}
	}
	if _, ok := session.Step(step); !ok {
		return feedback{err: fmt.Errorf("%w: %d", engine.ErrStepOutOfRange, step)}
	}
	if !session.GoToStep(step) {
		return feedback{status: http.StatusUnprocessableEntity}
	}
	return feedback{}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Draft bool `json:"draft"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, err)
			return
		}
	}
	s.respond(w, r, func(ctx context.Context, session *engine.Engine) feedback {
		return submitOp(ctx, session, body.Draft, render.RenderOptions{})
	})
}

// submitOp submits the session and translates the engine outcome into
// response feedback. Backend rejections are mapped onto the form's fields.
func submitOp(ctx context.Context, session *engine.Engine, asDraft bool, opts render.RenderOptions) feedback {
	result, err := session.Submit(ctx, asDraft)
	if err == nil {
		notice := strings.TrimSpace(result.Message)
		if notice == "" {
			key := render.KeySubmitted
			if asDraft {
				key = render.KeyDraftSaved
			}
			notice = render.Chrome(opts, key)
		}
		return feedback{notice: notice}
	}

	var (
		fb        feedback
		apiErr    *transport.APIError
		uploadErr *transport.UploadError
	)
	switch {
	case errors.Is(err, engine.ErrValidationFailed):
		fb.status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrIncompleteSteps):
		fb.status = http.StatusConflict
		fb.addFormError(engine.UserMessage(err))
	case errors.Is(err, engine.ErrSessionClosed), errors.Is(err, engine.ErrNoSubmitter):
		fb.err = err
	case errors.As(err, &uploadErr):
		fb.status = http.StatusUnprocessableEntity
		fb.addFieldErrors(map[string][]string{uploadErr.Field: {uploadErr.Error()}})
	case errors.As(err, &apiErr):
		mapping := render.MapErrorPayload(session.Fields(), apiErr.Fields)
		fb.addFieldErrors(mapping.Fields)
		if apiErr.Message != "" {
			fb.addFormError(apiErr.Message)
		}
		fb.formErrors = render.MergeFormErrors(fb.formErrors, mapping.Form...)
		if len(fb.formErrors) == 0 && len(mapping.Fields) == 0 {
			fb.addFormError(engine.UserMessage(err))
		}
		fb.status = http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			fb.status = http.StatusUnprocessableEntity
		}
	default:
		fb.status = http.StatusBadGateway
		fb.addFormError(engine.UserMessage(err))
	}
	return fb
}

func (s *Server) removeFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("field")
	fileID := r.PathValue("fileId")
	s.respond(w, r, func(ctx context.Context, session *engine.Engine) feedback {
		return removeFileOp(ctx, session, name, fileID)
	})
}

func removeFileOp(ctx context.Context, session *engine.Engine, name, fileID string) feedback {
	if err := editableField(session, name); err != nil {
		return feedback{err: err}
	}
	field, _ := session.Field(name)
	if !field.Type().IsFile() {
		return feedback{err: StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("field %q does not hold files", name)}}
	}
	return feedback{err: session.RemoveExistingFile(ctx, name, fileID)}
}
