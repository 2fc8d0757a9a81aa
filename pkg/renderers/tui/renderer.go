package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
)

// Renderer implements render.Renderer for terminal-driven sessions. Render
// walks the session step by step through the prompt driver and returns the
// collected values once the form is submitted or saved.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	openFile          FileOpener
	theme             Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output,
// files opened from the local disk).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
		openFile:     OpenLocalFile,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unsupported output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

type action int

const (
	actionNext action = iota
	actionBack
	actionDraft
	actionSubmit
	actionQuit
)

// Render prompts for every visible field of the current step, then offers
// the navigation actions until the session is submitted or saved as a draft.
// A session without a Submitter finishes locally: a successful final submit
// attempt returns the collected values.
func (r *Renderer) Render(ctx context.Context, session *engine.Engine, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if session == nil {
		return nil, errors.New("tui: session is nil")
	}

	for session.Status() == engine.StatusEditing {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.promptStep(ctx, session, opts); err != nil {
			return nil, err
		}

		choice, err := r.chooseAction(ctx, session, opts)
		if err != nil {
			return nil, err
		}

		done, err := r.apply(ctx, session, opts, choice)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	return r.serialize(session.Values().Export())
}

func (r *Renderer) apply(ctx context.Context, session *engine.Engine, opts render.RenderOptions, choice action) (bool, error) {
	switch choice {
	case actionQuit:
		return false, ErrAborted

	case actionBack:
		session.Retreat()

	case actionNext:
		moved, err := session.Advance(ctx)
		if err != nil {
			if infoErr := r.errorf(ctx, "%s", engine.UserMessage(err)); infoErr != nil {
				return false, infoErr
			}
		}
		if !moved {
			return false, r.reportErrors(ctx, session)
		}

	case actionDraft, actionSubmit:
		asDraft := choice == actionDraft
		result, err := session.Submit(ctx, asDraft)
		switch {
		case err == nil:
			message := strings.TrimSpace(result.Message)
			if message == "" {
				key := render.KeySubmitted
				if asDraft {
					key = render.KeyDraftSaved
				}
				message = render.Chrome(opts, key)
			}
			return true, r.info(ctx, message)
		case errors.Is(err, engine.ErrNoSubmitter) && !asDraft:
			return true, nil
		case errors.Is(err, engine.ErrValidationFailed):
			return false, r.reportErrors(ctx, session)
		case errors.Is(err, engine.ErrIncompleteSteps):
			if infoErr := r.errorf(ctx, "%s", engine.UserMessage(err)); infoErr != nil {
				return false, infoErr
			}
			if missing := session.MissingSteps(); len(missing) > 0 {
				session.GoToStep(missing[0])
			}
		case errors.Is(err, engine.ErrSessionClosed):
			return true, nil
		default:
			return false, r.errorf(ctx, "%s", engine.UserMessage(err))
		}
	}
	return false, nil
}

func (r *Renderer) chooseAction(ctx context.Context, session *engine.Engine, opts render.RenderOptions) (action, error) {
	var (
		labels  []string
		actions []action
	)
	add := func(label string, a action) {
		labels = append(labels, label)
		actions = append(actions, a)
	}

	if session.IsLastStep() {
		add(render.Chrome(opts, render.KeySubmit), actionSubmit)
	} else {
		add(render.Chrome(opts, render.KeyNext), actionNext)
	}
	if !session.IsFirstStep() {
		add(render.Chrome(opts, render.KeyBack), actionBack)
	}
	add(render.Chrome(opts, render.KeySaveDraft), actionDraft)
	add("Quit", actionQuit)

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message: r.theme.PromptPrefix + "What next?",
		Options: labels,
	})
	if err != nil {
		return actionQuit, err
	}
	if idx < 0 || idx >= len(actions) {
		return actionQuit, fmt.Errorf("tui: action index %d out of range", idx)
	}
	return actions[idx], nil
}

func (r *Renderer) reportErrors(ctx context.Context, session *engine.Engine) error {
	errs := session.Errors()
	for _, field := range session.CurrentFields() {
		for _, message := range errs[field.FieldName] {
			label := render.Text(field.Label, render.RenderOptions{}, session.Locale())
			if label == "" {
				label = field.FieldName
			}
			if err := r.errorf(ctx, "%s: %s", label, message); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, message string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+message)
}

func (r *Renderer) errorf(ctx context.Context, format string, args ...any) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+fmt.Sprintf(format, args...))
}
