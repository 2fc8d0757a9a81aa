package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/pkg/engine"
	formlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

func newFillCommand() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Aliases:   []string{"f"},
		Usage:     "Fill a form interactively in the terminal",
		ArgsUsage: "[form file or URL]",
		Flags: append(formFlags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format for collected values (json, form, pretty)",
				Value: string(tui.OutputFormatJSON),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write collected values to this file instead of stdout",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadSettings(command)
			if err != nil {
				return err
			}
			logger := formlog.WithModule("fill")

			client, err := backendClient(cfg, logger)
			if err != nil {
				return err
			}
			data, err := resolveForm(ctx, command, cfg, client)
			if err != nil {
				return fmt.Errorf("load form: %w", err)
			}

			renderer, err := tui.New(tui.WithOutputFormat(tui.OutputFormat(command.String("format"))))
			if err != nil {
				return err
			}

			session := engine.New(data, engineOptions(cfg, client, logger)...)
			out, err := renderer.Render(ctx, session, render.RenderOptions{Locale: cfg.Locale})
			if errors.Is(err, tui.ErrAborted) {
				return cli.Exit("aborted", 130)
			}
			if err != nil {
				return err
			}

			logger.WithField("status", session.Status()).Debug("Form session finished")
			return writeOutput(command.String("output"), out)
		},
	}
}
