package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/transport"
)

// formFlags select where a form comes from: a document path or URL given as
// the first argument, a blank form by type, or a stored submission.
func formFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "type",
			Usage: "Fetch a blank form of this type from the backend",
		},
		&cli.StringFlag{
			Name:  "submission",
			Usage: "Fetch a stored submission from the backend for editing",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Validate form documents against the schema while loading",
		},
	}
}

// backendClient returns nil when no backend is configured.
func backendClient(cfg config.Config, logger *logrus.Entry) (*transport.Client, error) {
	if cfg.Backend.BaseURL == "" {
		return nil, nil
	}
	client, err := transport.New(cfg.Backend.BaseURL,
		transport.WithToken(cfg.Backend.Token),
		transport.WithTimeout(cfg.Backend.Timeout),
		transport.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	return client, nil
}

func resolveForm(ctx context.Context, command *cli.Command, cfg config.Config, client *transport.Client) (model.FormData, error) {
	formType := command.String("type")
	submission := command.String("submission")
	if formType != "" || submission != "" {
		if client == nil {
			return model.FormData{}, errors.New("a backend URL is required to fetch forms from the backend")
		}
		if submission != "" {
			return client.SubmissionForEdit(ctx, submission)
		}
		return client.FormWithProgress(ctx, formType)
	}

	location := command.Args().First()
	if location == "" {
		return model.FormData{}, errors.New("a form document path or URL is required")
	}
	src, err := formflow.SourceFor(location)
	if err != nil {
		return model.FormData{}, err
	}

	loaderOptions := []schema.LoaderOption{schema.WithHTTPFallback(cfg.Backend.Timeout)}
	if cfg.Backend.Token != "" {
		loaderOptions = append(loaderOptions, schema.WithBearerToken(cfg.Backend.Token))
	}
	var decodeOptions []schema.DecodeOption
	if command.Bool("strict") {
		decodeOptions = append(decodeOptions, schema.Strict())
	}
	return formflow.LoadForm(ctx, formflow.NewLoader(loaderOptions...), src, decodeOptions...)
}

func engineOptions(cfg config.Config, client *transport.Client, logger *logrus.Entry) []engine.Option {
	options := []engine.Option{
		engine.WithLogger(logger),
		engine.WithLocale(cfg.Locale),
	}
	if client != nil {
		options = append(options, client.EngineOptions()...)
	}
	return options
}
