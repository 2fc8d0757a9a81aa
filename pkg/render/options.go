package render

// RenderOptions describe per-request data that renderers can use to customise
// their output without touching the session.
type RenderOptions struct {
	// Locale selects the localized labels. Empty means the session locale.
	Locale string
	// Action is the URL the rendered form posts to.
	Action string
	// Method overrides the HTTP method. Renderers translate verbs browsers
	// cannot send (PUT/PATCH/DELETE) into POST plus a hidden _method input.
	Method string
	// HiddenFields are emitted alongside the visible controls, e.g. the
	// session id or a CSRF token.
	HiddenFields map[string]string
	// Errors surfaces server-side validation feedback keyed by field name. It
	// is merged with the session's own field errors.
	Errors map[string][]string
	// FormErrors are messages not tied to a single field, such as a failed
	// submission.
	FormErrors []string
	// Notice is an informational message, such as "Draft saved".
	Notice string
	// Translator resolves the renderer's own chrome (button captions, step
	// counters). Nil falls back to built-in English text.
	Translator Translator
	// OnMissing decides what to show when a chrome key cannot be translated.
	OnMissing MissingTranslationHandler
}
