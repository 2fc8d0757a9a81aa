package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrMissingTranslator is reported to MissingTranslationHandler when no
// Translator was configured.
var ErrMissingTranslator = errors.New("render: translator is not configured")

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler returns the text to show when key could not be
// translated. args carries the formatting arguments; the first entry may be
// a map with a "default" fallback.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// Chrome keys used by the built-in renderers.
const (
	KeyNext        = "formflow.action.next"
	KeyBack        = "formflow.action.back"
	KeySaveDraft   = "formflow.action.save_draft"
	KeySubmit      = "formflow.action.submit"
	KeyStepCounter = "formflow.step.counter"
	KeyProgress    = "formflow.progress"
	KeyLoading     = "formflow.options.loading"
	KeyRemoveFile  = "formflow.file.remove"
	KeySubmitted   = "formflow.status.submitted"
	KeyDraftSaved  = "formflow.status.draft_saved"
	KeyRequired    = "formflow.field.required"
	KeySelectOne   = "formflow.field.select"
)

var chromeDefaults = map[string]string{
	KeyNext:        "Next",
	KeyBack:        "Back",
	KeySaveDraft:   "Save draft",
	KeySubmit:      "Submit",
	KeyStepCounter: "Step %d of %d",
	KeyProgress:    "%d%% complete",
	KeyLoading:     "Loading options...",
	KeyRemoveFile:  "Remove",
	KeySubmitted:   "Your form was submitted.",
	KeyDraftSaved:  "Your draft was saved.",
	KeyRequired:    "required",
	KeySelectOne:   "Select...",
}

// Chrome translates one of the renderer chrome keys, formatting args into
// the built-in default when no translation is available.
func Chrome(opts RenderOptions, key string, args ...any) string {
	fallback := chromeDefaults[key]
	if fallback != "" && len(args) > 0 {
		fallback = fmt.Sprintf(fallback, args...)
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return translate(opts.Locale, key, fallback, args, opts.Translator, onMissing)
}

// Text resolves a localized bundle for the options locale, falling back to
// the session locale and then the default resolution chain.
func Text(bundle model.I18nText, opts RenderOptions, sessionLocale string) string {
	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = sessionLocale
	}
	return model.Localize(bundle, locale)
}

func translate(locale, key, fallback string, args []any, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	params := append([]any{map[string]any{"default": fallback}}, args...)
	if t == nil {
		return onMissing(locale, key, params, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, params, err)
}

// missingTranslationDefault returns the "default" fallback when present and
// the key otherwise.
func missingTranslationDefault(_ string, key string, args []any, _ error) string {
	if len(args) > 0 {
		if m, ok := args[0].(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}
