package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/httpapi"
	formlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/transport"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serve form sessions over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address",
				Sources: cli.EnvVars("FORMFLOW_ADDR"),
			},
			&cli.StringFlag{
				Name:  "forms-dir",
				Usage: "Directory holding form documents named <form>.json or <form>.yaml",
			},
			&cli.StringFlag{
				Name:  "base-path",
				Usage: "Path prefix the API is mounted under",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Keep session checkpoints in Redis instead of memory",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:  "grace",
				Usage: "Shutdown grace period",
				Value: 5 * time.Second,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadSettings(command)
			if err != nil {
				return err
			}
			applyServeFlags(command, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(ctx, cfg, command.Duration("grace"))
		},
	}
}

func applyServeFlags(command *cli.Command, cfg *config.Config) {
	if command.IsSet("addr") {
		cfg.Server.Addr = command.String("addr")
	}
	if command.IsSet("forms-dir") {
		cfg.Server.FormsDir = command.String("forms-dir")
	}
	if command.IsSet("base-path") {
		cfg.Server.BasePath = command.String("base-path")
	}
	if command.IsSet("redis-url") {
		cfg.Sessions.Backend = config.SessionsRedis
		cfg.Sessions.RedisURL = command.String("redis-url")
	}
}

func serve(ctx context.Context, cfg config.Config, grace time.Duration) error {
	logger := formlog.WithModule("serve")

	client, err := backendClient(cfg, logger)
	if err != nil {
		return err
	}
	forms, err := formSource(cfg, client)
	if err != nil {
		return err
	}
	store, closeStore, err := sessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.WithError(err).Warn("Failed to close session store")
		}
	}()

	manager := session.NewManager(store,
		session.WithEngineOptions(engineOptions(cfg, client, logger)...),
		session.WithIdleTimeout(cfg.Sessions.Idle),
		session.WithLogger(formlog.WithModule("session")),
	)

	serverOptions := []httpapi.Option{
		httpapi.WithLogger(formlog.WithModule("httpapi")),
		httpapi.WithBasePath(cfg.Server.BasePath),
	}
	if cfg.Server.TemplatesDir != "" {
		assetsBase := strings.TrimRight(cfg.Server.BasePath, "/") + "/assets"
		registry, err := cliRenderers(cfg.Server.TemplatesDir, "", false, vanilla.WithAssetsBase(assetsBase))
		if err != nil {
			return err
		}
		serverOptions = append(serverOptions, httpapi.WithRenderers(registry))
	}
	api, err := httpapi.New(manager, forms, serverOptions...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	if _, err := api.Mount(mux); err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sessions.Idle > 0 {
		go manager.Run(ctx, sweepInterval(cfg.Sessions.Idle))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":      cfg.Server.Addr,
		"base_path": cfg.Server.BasePath,
		"sessions":  cfg.Sessions.Backend,
	}).Info("Listening")

	select {
	case err := <-errChan:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Shutdown did not complete")
	}
	return nil
}

// formSource serves documents from the forms directory and falls back to the
// backend for anything the directory cannot answer.
func formSource(cfg config.Config, client *transport.Client) (httpapi.FormSource, error) {
	switch {
	case cfg.Server.FormsDir != "" && client != nil:
		local := httpapi.DirectorySource(os.DirFS(cfg.Server.FormsDir), schema.Strict())
		remote := httpapi.BackendSource(client)
		return httpapi.FormSourceFunc(func(ctx context.Context, req httpapi.CreateRequest) (model.FormData, error) {
			if req.SubmissionID == "" {
				data, err := local.Form(ctx, req)
				if !errors.Is(err, httpapi.ErrFormNotFound) {
					return data, err
				}
			}
			return remote.Form(ctx, req)
		}), nil
	case cfg.Server.FormsDir != "":
		return httpapi.DirectorySource(os.DirFS(cfg.Server.FormsDir), schema.Strict()), nil
	case client != nil:
		return httpapi.BackendSource(client), nil
	default:
		return nil, errors.New("serve needs a forms directory or a backend URL")
	}
}

func sessionStore(ctx context.Context, cfg config.Config) (session.Store, func() error, error) {
	if cfg.Sessions.Backend != config.SessionsRedis {
		return session.NewMemoryStore(cfg.Sessions.TTL), func() error { return nil }, nil
	}
	store, err := session.NewRedisStoreFromURL(cfg.Sessions.RedisURL, cfg.Sessions.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("session store: %w", err)
	}
	return store, store.Close, nil
}

func sweepInterval(idle time.Duration) time.Duration {
	return min(max(idle/4, time.Second), time.Minute)
}
