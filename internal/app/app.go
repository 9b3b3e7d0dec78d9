// Package app boots the duel server: configuration, logging router, hub,
// dispatcher, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"

	"duel-arena/server/internal/config"
	"duel-arena/server/internal/dispatch"
	"duel-arena/server/internal/duel"
	servernet "duel-arena/server/internal/net"
	"duel-arena/server/internal/net/ws"
	"duel-arena/server/logging"
	loggingSinks "duel-arena/server/logging/sinks"
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := log.Default()

	router, closeRouter, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeRouter(); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hub := ws.NewHub()
	dispatcher := dispatch.New(duel.NewStore(), hub, router)

	handler := servernet.NewHTTPHandler(hub, dispatcher, servernet.HTTPHandlerConfig{
		Logger: logger,
		Stats:  router.Stats,
	})

	srv := &nethttp.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Printf("server listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// buildRouter assembles the logging router from the configured sinks.
func buildRouter(cfg config.Config) (*logging.Router, func() error, error) {
	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	logConfig.BufferSize = cfg.LogBufferSize
	if cfg.LogDebugEvents {
		logConfig.MinimumSeverity = logging.SeverityDebug
	}
	logConfig.JSON.FilePath = cfg.LogJSONPath
	logConfig.JSON.FlushInterval = cfg.LogFlushEvery

	var sinks []logging.NamedSink
	var jsonFile *os.File
	if logConfig.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logConfig.HasSink("json") && logConfig.JSON.FilePath != "" {
		f, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json log: %w", err)
		}
		jsonFile = f
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(nil, logConfig, sinks)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return nil, nil, fmt.Errorf("construct logging router: %w", err)
	}

	closeRouter := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := router.Close(ctx)
		if jsonFile != nil {
			if cerr := jsonFile.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
	return router, closeRouter, nil
}
