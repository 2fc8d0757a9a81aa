package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-formflow/pkg/model"
)

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits a human-friendly text summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures optional prefixes applied to printed messages.
type Theme struct {
	PromptPrefix string
	InfoPrefix   string
	ErrorPrefix  string
}

// SubmitTransformer mutates the collected values before serialization.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithSubmitTransformer allows callers to mutate collected values prior to
// serialization.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// FileOpener turns a path typed at a file prompt into a pending upload.
type FileOpener func(path string) (model.LocalFile, error)

// WithFileOpener overrides how file paths are opened. Passing nil disables
// file answers.
func WithFileOpener(opener FileOpener) Option {
	return func(r *Renderer) {
		r.openFile = opener
	}
}

// OpenLocalFile stats path, sniffs its content type and returns a LocalFile
// that reopens it on demand.
func OpenLocalFile(path string) (model.LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.LocalFile{}, err
	}
	if info.IsDir() {
		return model.LocalFile{}, fmt.Errorf("%s is a directory", path)
	}
	contentType := "application/octet-stream"
	if detected, err := mimetype.DetectFile(path); err == nil {
		contentType = detected.String()
	}
	return model.LocalFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
