package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Meta field names understood by the backend.
const (
	MetaStatus  = "_status"
	MetaPartial = "_partial"
	MetaStep    = "_step"
)

// Submission statuses sent in MetaStatus.
const (
	StatusDraft      = "draft"
	StatusSubmitted  = "submitted"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// EncodeMultipart writes values as a multipart/form-data body. Scalars become
// form values, lists become repeated keys, maps are JSON encoded, pending
// uploads become file parts and already stored file descriptors are left
// out (the backend keeps them). meta entries are appended last in key order.
func EncodeMultipart(values model.Values, fields []model.FormField, meta map[string]string) ([]byte, string, error) {
	configs := make(map[string]model.FormField, len(fields))
	for _, field := range fields {
		configs[field.FieldName] = field
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		field, known := configs[name]
		if (known && field.Type().IsFile()) || hasFiles(value) {
			if err := writeFiles(writer, field, name, value); err != nil {
				return nil, "", err
			}
			continue
		}
		for _, text := range formStrings(value) {
			if err := writer.WriteField(name, text); err != nil {
				return nil, "", fmt.Errorf("transport: writing field %q: %w", name, err)
			}
		}
	}

	metaKeys := make([]string, 0, len(meta))
	for key := range meta {
		metaKeys = append(metaKeys, key)
	}
	sort.Strings(metaKeys)
	for _, key := range metaKeys {
		if err := writer.WriteField(key, meta[key]); err != nil {
			return nil, "", fmt.Errorf("transport: writing meta %q: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transport: closing multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func hasFiles(value any) bool {
	return len(model.LocalFilesFrom(value)) > 0
}

func writeFiles(writer *multipart.Writer, field model.FormField, name string, value any) error {
	pending := model.LocalFilesFrom(value)
	if err := checkUploadLimits(field, name, pending, len(model.FileDescriptorsFrom(value))); err != nil {
		return err
	}

	for _, file := range pending {
		if file.Open == nil {
			return &UploadError{Field: name, File: file.Name, Err: fmt.Errorf("no content")}
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     name,
			"filename": filepath.Base(file.Name),
		}))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("transport: creating part for %q: %w", name, err)
		}
		if err := copyFile(part, file); err != nil {
			return &UploadError{Field: name, File: file.Name, Err: err}
		}
	}
	return nil
}

func copyFile(dst io.Writer, file model.LocalFile) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()
	_, err = io.Copy(dst, src)
	return err
}

func checkUploadLimits(field model.FormField, name string, pending []model.LocalFile, existing int) error {
	if field.Type() == model.FieldTypeFile && len(pending) > 1 {
		return &UploadError{Field: name, Err: ErrTooManyFiles}
	}
	cfg := field.FileConfig
	if cfg == nil {
		return nil
	}
	if cfg.MaxFiles > 0 && len(pending)+existing > cfg.MaxFiles {
		return &UploadError{Field: name, Err: fmt.Errorf("%w: at most %d", ErrTooManyFiles, cfg.MaxFiles)}
	}
	for _, file := range pending {
		if cfg.MaxSize > 0 && file.Size > cfg.MaxSize {
			return &UploadError{Field: name, File: file.Name, Err: fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, file.Size, cfg.MaxSize)}
		}
		if len(cfg.AllowedTypes) > 0 && !allowedType(file, cfg.AllowedTypes) {
			return &UploadError{Field: name, File: file.Name, Err: ErrFileTypeNotAllowed}
		}
	}
	return nil
}

// allowedType matches MIME types ("application/pdf"), wildcards ("image/*")
// and extensions (".pdf" or "pdf").
func allowedType(file model.LocalFile, allowed []string) bool {
	contentType := strings.ToLower(file.ContentType)
	if base, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = base
	}
	ext := strings.ToLower(filepath.Ext(file.Name))

	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.HasSuffix(entry, "/*"):
			if strings.HasPrefix(contentType, strings.TrimSuffix(entry, "*")) {
				return true
			}
		case strings.Contains(entry, "/"):
			if entry == contentType {
				return true
			}
		default:
			if "."+strings.TrimPrefix(entry, ".") == ext {
				return true
			}
		}
	}
	return false
}

// formStrings flattens a value into the strings sent for one key.
func formStrings(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return []string{typed}
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item == nil {
				continue
			}
			out = append(out, scalarString(item))
		}
		return out
	default:
		return []string{scalarString(value)}
	}
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case json.Number:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
