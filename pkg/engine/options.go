package engine

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes engine diagnostics to logger. Engines are silent by default.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLocale selects the locale used for labels in views and option lists.
// Validation messages always resolve labels in the default locale.
func WithLocale(locale string) Option {
	return func(e *Engine) {
		if trimmed := strings.TrimSpace(locale); trimmed != "" {
			e.locale = trimmed
		}
	}
}

// WithEvaluator overrides the visibility evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.evaluator = evaluator
		}
	}
}

// WithStepPersister installs the collaborator called after each successful advance.
func WithStepPersister(persister StepPersister) Option {
	return func(e *Engine) {
		e.persister = persister
	}
}

// WithSubmitter installs the collaborator used by Submit.
func WithSubmitter(submitter Submitter) Option {
	return func(e *Engine) {
		e.submitter = submitter
	}
}

// WithOptionSource installs the collaborator that resolves dynamic options.
func WithOptionSource(source OptionSource) Option {
	return func(e *Engine) {
		e.optionSource = source
	}
}

// WithFileDeleter installs the collaborator notified when a persisted file is removed.
func WithFileDeleter(deleter FileDeleter) Option {
	return func(e *Engine) {
		e.fileDeleter = deleter
	}
}
