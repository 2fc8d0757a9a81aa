package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the field's max_size.
	ErrFileTooLarge = errors.New("transport: file too large")
	// ErrTooManyFiles is returned when a field holds more files than max_files.
	ErrTooManyFiles = errors.New("transport: too many files")
	// ErrFileTypeNotAllowed is returned for uploads outside allowed_types.
	ErrFileTypeNotAllowed = errors.New("transport: file type not allowed")
)

// APIError is a non-2xx backend response. Error() renders it the way the
// backend's clients always have: "HTTP <status>: <body>".
type APIError struct {
	StatusCode int
	Body       string
	Message    string
	Fields     map[string][]string
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var payload struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return apiErr
	}
	apiErr.Message = payload.Error
	if apiErr.Message == "" {
		apiErr.Message = payload.Message
	}
	apiErr.Fields = decodeFieldErrors(payload.Errors)
	return apiErr
}

// decodeFieldErrors accepts {"field": ["msg"]} and {"field": "msg"}.
func decodeFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var generic map[string]any
	if json.Unmarshal(raw, &generic) != nil {
		return nil
	}
	out := make(map[string][]string, len(generic))
	for key, value := range generic {
		switch typed := value.(type) {
		case string:
			out[key] = append(out[key], typed)
		case []any:
			for _, item := range typed {
				out[key] = append(out[key], fmt.Sprint(item))
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// UploadError reports a client-side upload limit violation.
type UploadError struct {
	Field string
	File  string
	Err   error
}

func (e *UploadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
