// Copyright 2025 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/calyptra/shipmark"
	"github.com/calyptra/shipmark/jira"
	"github.com/calyptra/shipmark/markdown"
	"github.com/calyptra/shipmark/objectstore"
	"github.com/calyptra/shipmark/server"
	"github.com/calyptra/shipmark/upload"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:  "shipmark",
		Usage: "Jira to Markdown conversion and async object-store upload service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with the upload pipeline",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "HTTP listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB cache directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "store-endpoint",
						Usage:    "Object store base URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "store-bucket",
						Usage:    "Object store bucket",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "store-token",
						Usage: "Object store bearer token",
					},
					&cli.BoolFlag{
						Name:  "jira-insecure-tls",
						Usage: "Skip TLS certificate verification for Jira requests",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of upload workers",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed uploads",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Delay before a failed task is requeued",
						Value: 5 * time.Second,
					},
				},
			},
			{
				Name:   "convert",
				Usage:  "Convert Jira search JSON on stdin to Markdown on stdout",
				Action: convertCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-sub-tasks",
						Usage: "Render only the first issue, ignoring trailing issues",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	logger := slog.Default()

	svc, err := shipmark.NewService(c.String("db"),
		objectstore.Config{
			Endpoint: c.String("store-endpoint"),
			Bucket:   c.String("store-bucket"),
			Token:    c.String("store-token"),
		},
		shipmark.WithJiraConfig(jira.Config{
			InsecureTLS: c.Bool("jira-insecure-tls"),
		}),
		shipmark.WithDispatcherOptions(
			upload.WithWorkers(c.Int("workers")),
			upload.WithMaxRetries(c.Int("max-retries")),
			upload.WithRetryDelay(c.Duration("retry-delay")),
		),
		shipmark.WithServiceLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	handler := server.NewHandler(server.Dependencies{
		Searcher:   svc.Searcher(),
		Cache:      svc.CacheRepository(),
		Writer:     svc.CacheWriter(),
		Dispatcher: svc.Dispatcher(),
		Version:    version,
		Logger:     logger,
	})
	e := server.NewEcho(handler)

	errc := make(chan error, 1)
	go func() {
		if err := e.Start(c.String("listen")); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	logger.Info("shipmark listening", "addr", c.String("listen"), "version", version)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errc:
		logger.Error("server failed", "err", err)
	}

	// Stop accepting requests before draining the pipeline so no new work
	// arrives while the dispatcher winds down.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "err", err)
	}

	return svc.Close()
}

func convertCommand(c *cli.Context) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	var doc string
	if c.Bool("no-sub-tasks") {
		doc, err = markdown.ConvertWithoutSubTasks(data)
	} else {
		conv, convErr := markdown.Convert(data)
		if convErr == nil {
			doc = conv.Markdown
		}
		err = convErr
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	fmt.Println(doc)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
