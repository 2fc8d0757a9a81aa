package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/pkg/engine"
	formlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/jsonview"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
)

func newRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Aliases:   []string{"r"},
		Usage:     "Render one step of a form as HTML or JSON",
		ArgsUsage: "[form file or URL]",
		Flags: append(formFlags(),
			&cli.StringFlag{
				Name:  "renderer",
				Usage: "Renderer to use (vanilla, json)",
				Value: "vanilla",
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "Step to render (defaults to the form's resume point)",
			},
			&cli.StringFlag{
				Name:  "templates",
				Usage: "Directory with template overrides for the HTML renderer",
			},
			&cli.StringFlag{
				Name:  "stylesheet",
				Usage: "Stylesheet URL linked from the rendered page",
			},
			&cli.BoolFlag{
				Name:  "default-styles",
				Usage: "Inline the built-in stylesheet",
			},
			&cli.StringFlag{
				Name:  "action",
				Usage: "Form action URL",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the rendered page to this file instead of stdout",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadSettings(command)
			if err != nil {
				return err
			}
			logger := formlog.WithModule("render")

			client, err := backendClient(cfg, logger)
			if err != nil {
				return err
			}
			data, err := resolveForm(ctx, command, cfg, client)
			if err != nil {
				return fmt.Errorf("load form: %w", err)
			}
			if step := int(command.Int("step")); step > 0 {
				data.CurrentStep = step
			}

			templatesDir := command.String("templates")
			if templatesDir == "" {
				templatesDir = cfg.Server.TemplatesDir
			}
			registry, err := cliRenderers(templatesDir, command.String("stylesheet"), command.Bool("default-styles"))
			if err != nil {
				return err
			}

			session := engine.New(data, engineOptions(cfg, client, logger)...)
			if err := session.ResolveOptions(ctx); err != nil {
				logger.WithError(err).Warn("Could not resolve remote options")
			}

			out, _, err := registry.Render(ctx, command.String("renderer"), session, render.RenderOptions{
				Locale: cfg.Locale,
				Action: command.String("action"),
			})
			if err != nil {
				return err
			}
			return writeOutput(command.String("output"), out)
		},
	}
}

// cliRenderers registers the page renderers available to render and serve.
func cliRenderers(templatesDir, stylesheet string, defaultStyles bool, extra ...vanilla.Option) (*render.Registry, error) {
	options := append([]vanilla.Option(nil), extra...)
	if templatesDir != "" {
		options = append(options, vanilla.WithTemplatesDir(templatesDir))
	}
	if stylesheet != "" {
		options = append(options, vanilla.WithStylesheet(stylesheet))
	}
	if defaultStyles {
		options = append(options, vanilla.WithDefaultStyles())
	}

	html, err := vanilla.New(options...)
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	if err := registry.Register(html); err != nil {
		return nil, err
	}
	if err := registry.Register(jsonview.New(jsonview.WithIndent("  "))); err != nil {
		return nil, err
	}
	return registry, nil
}
