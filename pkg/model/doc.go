// Package model defines the declarative form description consumed by the
// engine and renderers: the form definition, its ordered steps, the fields
// attached to each step and the value snapshot a session edits. Definitions
// are decoded from the backend's snake_case JSON (or equivalent YAML) and are
// treated as immutable once a session starts.
//
// Localized strings are carried as I18nText bundles that keep the order in
// which locales were declared, so the "first value" fallback is stable across
// decodes.
package model
