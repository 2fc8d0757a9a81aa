package pongo_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

//go:embed testdata/templates/*.tpl
var embeddedTemplates embed.FS

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("render template mismatch writer\nwant: %q\n got: %q", want, written)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, _ := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("use-global", nil, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-global.golden"))
	if result != want {
		t.Fatalf("render template mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter registration to fail")
	}

	result, _ := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-filter.golden"))
	if result != want {
		t.Fatalf("render template mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_StructContext(t *testing.T) {
	engine := newEngine(t)

	view := render.View{
		Title: "KYB",
		Steps: []render.StepView{{Number: 1}, {Number: 2, Current: true}},
	}
	result, err := engine.RenderTemplate("view", view)
	if err != nil {
		t.Fatalf("render view: %v", err)
	}
	if result != "KYB: 1 2*\n" {
		t.Fatalf("unexpected output %q", result)
	}

	if _, err := engine.RenderTemplate("view", 42); err == nil {
		t.Fatalf("expected scalar data to be rejected")
	}
}

func TestEngine_DefaultFilters(t *testing.T) {
	engine := newEngine(t)

	out, err := engine.Render(`{{ help|sanitize }}|{{ "  Name "|trim|lowerfirst }}|{{ values|contains:"b" }}`, map[string]any{
		"help":   `<b>Bold</b><script>alert(1)</script>`,
		"values": []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if out != "<b>Bold</b>|name|True" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSanitizeHTML(t *testing.T) {
	got := pongo.SanitizeHTML(` <a href="https://example.com" onclick="x()">docs</a> `)
	if strings.Contains(got, "onclick") || !strings.Contains(got, "nofollow") {
		t.Fatalf("unexpected sanitized output %q", got)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := pongo.New(); err == nil {
		t.Fatalf("expected error without template source")
	}
}

func newEngine(t *testing.T) *pongo.Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}

	engine, err := pongo.New(pongo.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
