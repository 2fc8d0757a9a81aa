package render_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

type stubTranslator map[string]string

func (t stubTranslator) Translate(_ string, key string, _ ...any) (string, error) {
	if msg, ok := t[key]; ok {
		return msg, nil
	}
	return "", errors.New("missing translation")
}

func TestChrome_UsesTranslatorAndFallbacks(t *testing.T) {
	opts := render.RenderOptions{
		Locale:     "es",
		Translator: stubTranslator{render.KeyNext: "Siguiente"},
	}

	if got := render.Chrome(opts, render.KeyNext); got != "Siguiente" {
		t.Fatalf("expected translated caption, got %q", got)
	}
	if got := render.Chrome(opts, render.KeyBack); got != "Back" {
		t.Fatalf("expected built-in fallback, got %q", got)
	}
	if got := render.Chrome(render.RenderOptions{}, render.KeyStepCounter, 2, 3); got != "Step 2 of 3" {
		t.Fatalf("expected formatted fallback, got %q", got)
	}
	if got := render.Chrome(opts, "custom.key"); got != "custom.key" {
		t.Fatalf("expected unknown key to render as key, got %q", got)
	}
}

func TestChrome_OnMissingHandler(t *testing.T) {
	var gotErr error
	opts := render.RenderOptions{
		Locale: "fr",
		OnMissing: func(locale, key string, _ []any, err error) string {
			gotErr = err
			return "[" + locale + ":" + key + "]"
		},
	}

	if got := render.Chrome(opts, render.KeySubmit); got != "[fr:"+render.KeySubmit+"]" {
		t.Fatalf("unexpected missing output %q", got)
	}
	if !errors.Is(gotErr, render.ErrMissingTranslator) {
		t.Fatalf("expected ErrMissingTranslator, got %v", gotErr)
	}
}

func TestText_PrefersOptionsLocale(t *testing.T) {
	label := model.Text("en", "Company", "fr", "Société")

	if got := render.Text(label, render.RenderOptions{Locale: "fr"}, "en"); got != "Société" {
		t.Fatalf("expected French label, got %q", got)
	}
	if got := render.Text(label, render.RenderOptions{}, "en"); got != "Company" {
		t.Fatalf("expected session locale label, got %q", got)
	}
}
