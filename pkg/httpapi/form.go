package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

// Control names posted by the HTML renderer alongside the field values.
const (
	controlAction     = "_action"
	controlGoto       = "_goto"
	controlFields     = "_fields"
	controlRemoveFile = "_remove_file"
)

// posted holds a parsed browser form post.
type posted struct {
	values url.Values
	files  map[string][]*multipart.FileHeader
}

func (s *Server) parsePost(w http.ResponseWriter, r *http.Request) (posted, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
			return posted{}, postError(err)
		}
		return posted{values: r.MultipartForm.Value, files: r.MultipartForm.File}, nil
	}
	if err := r.ParseForm(); err != nil {
		return posted{}, postError(err)
	}
	return posted{values: r.PostForm}, nil
}

func postError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return StatusError{Code: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("form post exceeds %d bytes", tooLarge.Limit)}
	}
	return StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("httpapi: parse form: %w", err)}
}

// renderSession renders the current step with the negotiated renderer.
func (s *Server) renderSession(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, func(context.Context, *engine.Engine, render.RenderOptions) feedback {
		return feedback{}
	})
}

// postSession applies a browser form post: the step's values first, then
// file removals, then the requested navigation or submit action.
func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	form, err := s.parsePost(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.page(w, r, func(ctx context.Context, session *engine.Engine, opts render.RenderOptions) feedback {
		if session.Status() != engine.StatusEditing {
			return feedback{status: http.StatusConflict}
		}

		var fb feedback
		if err := applyPostedValues(session, form); err != nil {
			return feedback{err: err}
		}

		for _, raw := range form.values[controlRemoveFile] {
			field, fileID, ok := strings.Cut(raw, ":")
			if !ok {
				continue
			}
			if removed := removeFileOp(ctx, session, field, fileID); removed.err != nil {
				fb.addFormError(engine.UserMessage(removed.err))
			}
		}

		if target := strings.TrimSpace(form.values.Get(controlGoto)); target != "" {
			step, err := strconv.Atoi(target)
			if err != nil {
				return feedback{err: StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid step %q", target)}}
			}
			moved := goToStepOp(session, step)
			moved.formErrors = render.MergeFormErrors(fb.formErrors, moved.formErrors...)
			return moved
		}

		var outcome feedback
		switch action := form.values.Get(controlAction); action {
		case "next":
			outcome = advanceOp(ctx, session)
		case "back":
			outcome = retreatOp(ctx, session)
		case "draft":
			outcome = submitOp(ctx, session, true, opts)
		case "submit":
			outcome = submitOp(ctx, session, false, opts)
		case "":
		default:
			return feedback{err: StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("unknown action %q", action)}}
		}
		if errors.Is(outcome.err, engine.ErrNoSubmitter) {
			outcome = feedback{status: http.StatusNotImplemented, formErrors: []string{engine.UserMessage(outcome.err)}}
		}
		outcome.formErrors = render.MergeFormErrors(fb.formErrors, outcome.formErrors...)
		return outcome
	})
}

// page runs op and renders the session afterwards. Operation failures that
// carry no session state are reported as problem documents.
func (s *Server) page(w http.ResponseWriter, r *http.Request, op func(context.Context, *engine.Engine, render.RenderOptions) feedback) {
	id := r.PathValue("id")
	name := s.negotiateRenderer(r)
	if !s.renderers.Has(name) {
		writeError(w, r, fmt.Errorf("%w: %q", ErrUnknownRenderer, name))
		return
	}

	opts := render.RenderOptions{
		Locale:       strings.TrimSpace(r.URL.Query().Get("locale")),
		Action:       s.sessionPath(id),
		HiddenFields: render.MergeHiddenFields(nil, render.SessionField(id)),
	}

	var (
		body        []byte
		contentType string
		fb          feedback
	)
	err := s.sessions.Do(r.Context(), id, func(session *engine.Engine) error {
		fb = op(r.Context(), session, opts)
		if fb.err != nil {
			return nil
		}
		if session.Status() == engine.StatusEditing {
			if err := session.ResolveOptions(r.Context()); err != nil {
				fb.addFormError(engine.UserMessage(err))
			}
		}

		view := opts
		view.Errors = fb.fieldErrors
		view.FormErrors = fb.formErrors
		view.Notice = fb.notice
		var err error
		body, contentType, err = s.renderers.Render(r.Context(), name, session, view)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if fb.err != nil {
		writeError(w, r, fb.err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(fb.statusOr(http.StatusOK))
	_, _ = w.Write(body)
}

func (s *Server) negotiateRenderer(r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("renderer")); name != "" {
		return name
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return "json"
	}
	return s.defaultRenderer
}

// applyPostedValues copies the posted controls of the rendered step into the
// session. Only fields listed in _fields are touched so unchecked boxes and
// emptied inputs clear their value while fields of other steps are kept.
func applyPostedValues(session *engine.Engine, form posted) error {
	for _, name := range form.values[controlFields] {
		field, ok := session.Field(name)
		if !ok || field.IsReadonly {
			continue
		}

		kind := field.Type()
		switch {
		case kind.IsFile():
			value, ok, err := postedFiles(session, field, form.files[name])
			if err != nil {
				return err
			}
			if ok {
				_ = session.SetFieldValue(name, value)
			}
		case kind == model.FieldTypeCheckbox:
			selected := make([]any, 0, len(form.values[name]))
			for _, raw := range form.values[name] {
				if raw = strings.TrimSpace(raw); raw != "" {
					selected = append(selected, raw)
				}
			}
			if len(selected) == 0 {
				_ = session.ClearFieldValue(name)
				continue
			}
			_ = session.SetFieldValue(name, selected)
		default:
			raw := form.values.Get(name)
			if kind != model.FieldTypeTextarea {
				raw = strings.TrimSpace(raw)
			}
			if strings.TrimSpace(raw) == "" {
				_ = session.ClearFieldValue(name)
				continue
			}
			_ = session.SetFieldValue(name, postedScalar(kind, raw))
		}
	}
	return nil
}

// postedScalar keeps unparsable numbers as text so validation reports them.
func postedScalar(kind model.FieldType, raw string) any {
	if kind.IsNumeric() {
		if number, err := strconv.ParseFloat(raw, 64); err == nil {
			return number
		}
	}
	return raw
}

// postedFiles merges uploaded parts with the files the field already holds.
// It reports false when nothing was uploaded so the current value stays.
func postedFiles(session *engine.Engine, field model.FormField, headers []*multipart.FileHeader) (any, bool, error) {
	var uploads []model.LocalFile
	for _, header := range headers {
		if header == nil || header.Filename == "" {
			continue
		}
		upload, err := localFile(header)
		if err != nil {
			return nil, false, err
		}
		uploads = append(uploads, upload)
	}
	if len(uploads) == 0 {
		return nil, false, nil
	}

	if field.Type() == model.FieldTypeFile {
		return uploads[0], true, nil
	}
	existing := session.ExistingFiles(field.FieldName)
	mixed := make([]any, 0, len(existing)+len(uploads))
	for _, descriptor := range existing {
		mixed = append(mixed, descriptor)
	}
	for _, upload := range uploads {
		mixed = append(mixed, upload)
	}
	return mixed, true, nil
}

// localFile buffers an uploaded part. Pending uploads outlive the request
// that carried them, so the multipart temp storage cannot back them.
func localFile(header *multipart.FileHeader) (model.LocalFile, error) {
	file, err := header.Open()
	if err != nil {
		return model.LocalFile{}, fmt.Errorf("httpapi: open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.LocalFile{}, fmt.Errorf("httpapi: read upload %s: %w", header.Filename, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return model.LocalFile{
		Name:        header.Filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}
