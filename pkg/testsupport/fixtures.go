package testsupport

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

//go:embed testdata/*.json testdata/*.yaml
var fixtures embed.FS

// Fixture names shipped with the package.
const (
	FixtureContact = "contact.json"
	FixtureKYB     = "kyb.yaml"
)

// FixtureBytes returns the raw bytes of a bundled fixture.
func FixtureBytes(t *testing.T, name string) []byte {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %q: %v", name, err)
	}
	return data
}

// MustFormData decodes a bundled fixture into FormData.
func MustFormData(t *testing.T, name string) model.FormData {
	t.Helper()
	data, err := schema.DecodeBytes(name, FixtureBytes(t, name), schema.Strict())
	if err != nil {
		t.Fatalf("decode fixture %q: %v", name, err)
	}
	return data
}

// NewSession starts an engine over a bundled fixture.
func NewSession(t *testing.T, name string, options ...engine.Option) *engine.Engine {
	t.Helper()
	return engine.New(MustFormData(t, name), options...)
}

// LoadFormData reads a JSON or YAML form document from disk without requiring
// testing.T, for callers wiring fixtures in setup functions.
func LoadFormData(path string) (model.FormData, error) {
	if path == "" {
		return model.FormData{}, errors.New("testsupport: form path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.FormData{}, fmt.Errorf("testsupport: read form: %w", err)
	}
	data, err := schema.DecodeBytes(path, raw)
	if err != nil {
		return model.FormData{}, fmt.Errorf("testsupport: decode form: %w", err)
	}
	return data, nil
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
