// Command formflow fills, renders, lints and serves multi-step forms.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/internal/config"
	formlog "github.com/goliatone/go-formflow/pkg/log"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "formflow",
		Usage:                 "Drive multi-step forms from the terminal or over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				Sources: cli.EnvVars("FORMFLOW_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "locale",
				Usage:   "Locale used for labels and messages",
				Sources: cli.EnvVars("FORMFLOW_LOCALE"),
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Usage:   "Base URL of the form backend",
				Sources: cli.EnvVars("FORMFLOW_BACKEND_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent to the form backend",
				Sources: cli.EnvVars("FORMFLOW_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			newFillCommand(),
			newRenderCommand(),
			newServeCommand(),
			newLintCommand(),
		},
	}
}

// loadSettings reads the configuration file and applies the global flags on
// top of it, then sets up logging.
func loadSettings(command *cli.Command) (config.Config, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}
	if command.IsSet("locale") {
		cfg.Locale = command.String("locale")
	}
	if command.IsSet("backend-url") {
		cfg.Backend.BaseURL = command.String("backend-url")
	}
	if command.IsSet("token") {
		cfg.Backend.Token = command.String("token")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	formlog.Setup(cfg.LogLevel)
	return cfg, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
