package vanilla_test

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func renderString(t *testing.T, renderer *vanilla.Renderer, session *engine.Engine, opts render.RenderOptions) string {
	t.Helper()
	out, err := renderer.Render(testsupport.Context(), session, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, output string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(output, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, output)
		}
	}
}

func assertNotContains(t *testing.T, output string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(output, fragment) {
			t.Fatalf("expected output not to contain %q\n%s", fragment, output)
		}
	}
}

func newRenderer(t *testing.T, options ...vanilla.Option) *vanilla.Renderer {
	t.Helper()
	renderer, err := vanilla.New(options...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func TestRenderer_FirstStep(t *testing.T) {
	session := testsupport.NewSession(t, testsupport.FixtureKYB)

	output := renderString(t, newRenderer(t), session, render.RenderOptions{
		Action:       "/sessions/abc",
		HiddenFields: render.MergeHiddenFields(nil, render.SessionField("abc")),
	})

	assertContains(t, output,
		`<form id="formflow-kyb" class="formflow-form" action="/sessions/abc" method="POST"`,
		`<input type="hidden" name="_session" value="abc">`,
		`aria-current="step"`,
		`Step 1 of 3`,
		`<label for="field-company_name">Company name<span class="formflow-required"`,
		`name="annual_revenue" type="number"`,
		`step="0.01"`,
		`aria-busy="true"`,
		`Loading options...`,
		`<input type="hidden" name="_fields" value="company_name">`,
		`name="_action" value="next"`,
		`name="_action" value="draft"`,
	)
	assertNotContains(t, output,
		`name="certificate"`,
		`name="_action" value="back"`,
		`name="_goto"`,
	)
}

func TestRenderer_LocalizedLabels(t *testing.T) {
	session := testsupport.NewSession(t, testsupport.FixtureKYB, engine.WithLocale("de"))

	output := renderString(t, newRenderer(t), session, render.RenderOptions{})
	assertContains(t, output, `>Firmenname<`, `lang="de"`)
}

func TestRenderer_ErrorsVisibilityAndEscaping(t *testing.T) {
	session := testsupport.NewSession(t, testsupport.FixtureContact)
	if err := session.SetFieldValue("name", `<script>alert(1)</script>`); err != nil {
		t.Fatalf("set name: %v", err)
	}
	session.ValidateStep(1)

	renderer := newRenderer(t)
	output := renderString(t, renderer, session, render.RenderOptions{
		FormErrors: []string{"Please fix the errors below"},
	})

	assertContains(t, output,
		`has-error`,
		`aria-invalid="true" aria-describedby="field-email-errors"`,
		`<small class="formflow-help"><b>No</b> passwords please.</small>`,
		`<ul class="formflow-errors" role="alert">`,
		`Please fix the errors below`,
		`&lt;script&gt;`,
	)
	assertNotContains(t, output, `name="order_number"`, `<script>alert(1)</script>`, `<nav`)

	if err := session.SetFieldValue("topic", "support"); err != nil {
		t.Fatalf("set topic: %v", err)
	}
	output = renderString(t, renderer, session, render.RenderOptions{})
	assertContains(t, output,
		`name="order_number"`,
		`pattern="[A-Z]{2}-[0-9]{4}"`,
		`<option value="support" selected>Support</option>`,
		`name="_action" value="submit"`,
	)
}

func TestRenderer_FileStepAndNavigation(t *testing.T) {
	data := testsupport.MustFormData(t, testsupport.FixtureKYB)
	data.CurrentStep = 3
	data.StepProgress = []model.StepProgress{
		{StepNumber: 1, Status: model.StepStatusCompleted},
		{StepNumber: 2, Status: model.StepStatusCompleted},
	}
	data.SubmissionID = "sub-1"
	data.ExistingData = map[string]any{
		"certificate": map[string]any{"id": "f-9", "name": "cert.pdf", "url": "https://files.example.com/cert.pdf"},
	}
	session := engine.New(data)

	output := renderString(t, newRenderer(t), session, render.RenderOptions{})
	assertContains(t, output,
		`name="certificate" type="file"`,
		`accept="application/pdf,image/*"`,
		`data-max-size="5242880"`,
		`name="supporting_documents" type="file" data-formflow-files multiple`,
		`<a href="https://files.example.com/cert.pdf" rel="noopener">cert.pdf</a>`,
		`name="_remove_file" value="certificate:f-9"`,
		`<button type="submit" name="_goto" value="1" formnovalidate>Company</button>`,
		`name="_action" value="back"`,
		`name="_action" value="submit"`,
		`<script src="/assets/formflow-files.js" defer></script>`,
		`66% complete`,
	)
}

func TestRenderer_Submitted(t *testing.T) {
	session := testsupport.NewSession(t, testsupport.FixtureContact, engine.WithSubmitter(
		engine.SubmitterFunc(func(context.Context, engine.Submission) (engine.SubmitResult, error) {
			return engine.SubmitResult{SubmissionID: "sub-1", Status: "submitted"}, nil
		}),
	))
	for name, value := range map[string]any{"name": "Ada", "email": "ada@example.com", "message": "Hello"} {
		if err := session.SetFieldValue(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	if _, err := session.Submit(testsupport.Context(), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	output := renderString(t, newRenderer(t), session, render.RenderOptions{})
	assertContains(t, output, `data-status="submitted"`, `Your form was submitted.`)
	assertNotContains(t, output, `name="_action"`, `name="email"`)
}

func TestRenderer_StylesAndOverrides(t *testing.T) {
	session := testsupport.NewSession(t, testsupport.FixtureContact)

	renderer := newRenderer(t,
		vanilla.WithDefaultStyles(),
		vanilla.WithStylesheet("custom.css"),
		vanilla.WithChromeClasses(vanilla.ChromeClasses{Form: "my-form"}),
		vanilla.WithFieldClass("name", "wide formflow-ignored"),
		vanilla.WithComponentOverride("topic", "radio"),
		vanilla.WithComponentConfig("textarea", map[string]any{"rows": 8}),
	)
	output := renderString(t, renderer, session, render.RenderOptions{})

	assertContains(t, output,
		`<link rel="stylesheet" href="/assets/custom.css">`,
		`<style>.formflow-form{`,
		`class="my-form"`,
		`class="formflow-field wide" data-field="name"`,
		`role="radiogroup" aria-labelledby="field-topic-label"`,
		`<span id="field-topic-label">Topic</span>`,
		`rows="8"`,
	)
	assertNotContains(t, output, `formflow-ignored`)
}

func TestRenderer_WithTemplateRenderer(t *testing.T) {
	stub := &stubTemplateRenderer{
		renderTemplateFunc: func(name string, data any, out ...io.Writer) (string, error) {
			if name == "templates/form.tmpl" {
				return "custom-output", nil
			}
			return "<component />", nil
		},
	}

	renderer := newRenderer(t, vanilla.WithTemplateRenderer(stub))

	out := renderString(t, renderer, testsupport.NewSession(t, testsupport.FixtureContact), render.RenderOptions{})
	if out != "custom-output" {
		t.Fatalf("unexpected output: %s", out)
	}
	if stub.calls < 2 {
		t.Fatalf("expected component and form templates to be rendered, got %d calls", stub.calls)
	}
}

func TestRenderer_Metadata(t *testing.T) {
	renderer := newRenderer(t)
	if renderer.Name() != "vanilla" || !strings.HasPrefix(renderer.ContentType(), "text/html") {
		t.Fatalf("unexpected renderer metadata %s %s", renderer.Name(), renderer.ContentType())
	}
	if _, err := renderer.Render(testsupport.Context(), nil, render.RenderOptions{}); err == nil {
		t.Fatalf("expected nil session to fail")
	}
}

func TestAssetsFS(t *testing.T) {
	for _, name := range []string{vanilla.StylesheetName, "formflow-files.js"} {
		if _, err := fs.ReadFile(vanilla.AssetsFS(), name); err != nil {
			t.Fatalf("expected %s to be bundled: %v", name, err)
		}
	}
}

type stubTemplateRenderer struct {
	calls              int
	renderTemplateFunc func(name string, data any, out ...io.Writer) (string, error)
}

func (s *stubTemplateRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return s.RenderTemplate(name, data, out...)
}

func (s *stubTemplateRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	s.calls++
	if s.renderTemplateFunc != nil {
		return s.renderTemplateFunc(name, data, out...)
	}
	return "", nil
}

func (s *stubTemplateRenderer) RenderString(string, any, ...io.Writer) (string, error) {
	return "", nil
}

func (s *stubTemplateRenderer) RegisterFilter(string, func(input any, param any) (any, error)) error {
	return nil
}

func (s *stubTemplateRenderer) GlobalContext(any) error {
	return nil
}
