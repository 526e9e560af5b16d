package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/upe-portal/interview-relay/internal/adapters/audit"
	router "github.com/upe-portal/interview-relay/internal/adapters/http"
	"github.com/upe-portal/interview-relay/internal/app"
	"github.com/upe-portal/interview-relay/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to parse flags")
	}
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	policy, err := app.PolicyByName(cfg.Relay.SlowConsumer)
	if err != nil {
		log.Fatal().Err(err).Msg("bad relay policy")
	}

	pub, err := audit.NewPublisher(cfg.Audit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up audit export")
	}
	var observer app.Observer
	var exporter *audit.Async
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	if pub != nil {
		if rs, ok := pub.(*audit.RedisSink); ok {
			pingCtx, pingCancel := context.WithTimeout(ctx, cfg.Audit.Timeout)
			if err := rs.Ping(pingCtx); err != nil {
				log.Warn().Err(err).Msg("redis audit sink unreachable, records will be dropped until it recovers")
			}
			pingCancel()
		}
		exporter = audit.NewAsync(pub, cfg.Audit.Buffer, cfg.Audit.Timeout)
		observer = exporter
		exporter.Start(auditCtx)
		log.Info().Str("driver", cfg.Audit.Driver).Msg("audit export enabled")
	}

	relay := app.NewRelay(policy, observer)

	r := router.SetupRouter(ctx, cfg, relay)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("interview relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// disconnect records must reach the exporter before it is stopped
	if err := relay.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("connections still open at shutdown")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if exporter != nil {
		stopAudit()
		if err := exporter.Close(); err != nil {
			log.Error().Err(err).Msg("audit close")
		}
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
