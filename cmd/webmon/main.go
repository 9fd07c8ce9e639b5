package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"webmon/internal/api"
	"webmon/internal/config"
	"webmon/internal/metrics"
	"webmon/internal/monitor"
	"webmon/internal/server"
	"webmon/internal/source"
	"webmon/pkg/matcher"
)

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// initialUpdates loads the flag list and the patterns file, one update per
// source. A broken source is logged and skipped.
func initialUpdates(ctx context.Context, cfg *config.Config) []source.Update {
	sources := map[string]source.Source{"flags": source.StaticSource(cfg.Patterns)}
	if cfg.PatternsFile != "" {
		sources[source.FileSourceName] = source.FileSource{Path: cfg.PatternsFile}
	}

	var updates []source.Update
	for name, src := range sources {
		p, err := src.FetchPatterns(ctx)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypePatternFetch, name).Inc()
			log.Err(err).Str("source", name).Msg("Failed to load initial patterns")
			continue
		}
		updates = append(updates, source.Update{Source: name, Patterns: p})
	}
	return updates
}

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("webmon v1.0.0")
	log.Info().Msgf("Listening on: %s", cfg.ListenAddr)
	if cfg.Upstream != "" {
		log.Info().Msgf("Upstream: %s", cfg.Upstream)
	}
	if cfg.ControllerURL != "" {
		log.Info().Msgf("Controller URL: %s", cfg.ControllerURL)
		log.Info().Msgf("Fetch Interval: %v", cfg.FetchInterval)
	}
	log.Info().Msgf("Metrics endpoint: http://%s/metrics", cfg.MetricsAddr)

	go func() {
		if err := metrics.StartMetricsServer(cfg.MetricsAddr); err != nil {
			log.Err(err).Msg("Metrics server error")
		}
	}()

	table := matcher.NewAtomicTable(matcher.WithBloomThreshold(cfg.BloomThreshold))
	handler := monitor.NewHandler(cfg.Verbose, table)
	handler.UpdatePatterns(initialUpdates(ctx, cfg)...)

	updateChannel := make(chan source.Update, 10)

	// Single consumer, so reloads never race each other.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updateChannel:
				log.Debug().Str("source", u.Source).Msgf("Received pattern update with %d entries", len(u.Patterns))
				handler.UpdatePatterns(u)
			}
		}
	}()

	if cfg.PatternsFile != "" {
		watcher, err := source.NewWatcher(cfg.PatternsFile, updateChannel, 0)
		if err != nil {
			log.Err(err).Msg("Failed to create patterns file watcher")
		} else if err := watcher.Start(ctx); err != nil {
			log.Err(err).Msg("Failed to watch patterns file")
		} else {
			defer watcher.Stop()
		}
	}

	if cfg.ControllerURL != "" {
		src, err := source.NewControllerSource(cfg.ControllerURL, os.Getenv("WEBMON_CONFIG_HASH"), source.TLSConfig{
			CACertPath:         cfg.CACertPath,
			ClientCertPath:     cfg.ClientCertPath,
			ClientKeyPath:      cfg.ClientKeyPath,
			InsecureSkipVerify: cfg.Insecure,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure controller client")
		}
		poller := source.NewPoller("controller", src, cfg.FetchInterval, cfg.Verbose, updateChannel)
		go poller.Start(ctx)
	} else if cfg.PatternsFile == "" {
		log.Warn().Msg("No controller URL or patterns file specified, patterns can only change through the API")
	}

	if cfg.APIAddr != "" {
		apiServer := api.NewServer(cfg.APIAddr, cfg.Verbose, table, updateChannel)
		go func() {
			if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	httpServer := server.NewHTTPServer(cfg.ListenAddr, cfg.Upstream, cfg.MaxConns, handler, cfg.Verbose)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Err(err).Msg("HTTP server shutdown error")
		}
	}()

	if err := httpServer.Start(); err != nil {
		log.Err(err).Msg("HTTP server error")
	}
}
