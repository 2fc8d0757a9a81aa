package vanilla

import "strings"

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm     ChromeClass = "formflow-form"
	ClassHeader   ChromeClass = "formflow-header"
	ClassSteps    ChromeClass = "formflow-steps"
	ClassProgress ChromeClass = "formflow-progress"
	ClassSection  ChromeClass = "formflow-section"
	ClassField    ChromeClass = "formflow-field"
	ClassHelp     ChromeClass = "formflow-help"
	ClassErrors   ChromeClass = "formflow-errors"
	ClassNotice   ChromeClass = "formflow-notice"
	ClassActions  ChromeClass = "formflow-actions"
)

// ChromeClasses overrides the class attribute of the renderer chrome. Empty
// members keep the defaults.
type ChromeClasses struct {
	Form     string
	Header   string
	Steps    string
	Progress string
	Section  string
	Field    string
	Help     string
	Errors   string
	Notice   string
	Actions  string
}

// DefaultChromeClasses returns the classes styled by the bundled stylesheet.
func DefaultChromeClasses() ChromeClasses {
	return ChromeClasses{
		Form:     string(ClassForm),
		Header:   string(ClassHeader),
		Steps:    string(ClassSteps),
		Progress: string(ClassProgress),
		Section:  string(ClassSection),
		Field:    string(ClassField),
		Help:     string(ClassHelp),
		Errors:   string(ClassErrors),
		Notice:   string(ClassNotice),
		Actions:  string(ClassActions),
	}
}

func (c ChromeClasses) withDefaults() ChromeClasses {
	def := DefaultChromeClasses()
	pick := func(value, fallback string) string {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
		return fallback
	}
	return ChromeClasses{
		Form:     pick(c.Form, def.Form),
		Header:   pick(c.Header, def.Header),
		Steps:    pick(c.Steps, def.Steps),
		Progress: pick(c.Progress, def.Progress),
		Section:  pick(c.Section, def.Section),
		Field:    pick(c.Field, def.Field),
		Help:     pick(c.Help, def.Help),
		Errors:   pick(c.Errors, def.Errors),
		Notice:   pick(c.Notice, def.Notice),
		Actions:  pick(c.Actions, def.Actions),
	}
}

func (c ChromeClasses) asMap() map[string]string {
	return map[string]string{
		"form":     c.Form,
		"header":   c.Header,
		"steps":    c.Steps,
		"progress": c.Progress,
		"section":  c.Section,
		"field":    c.Field,
		"help":     c.Help,
		"errors":   c.Errors,
		"notice":   c.Notice,
		"actions":  c.Actions,
	}
}
