package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	taleweave "github.com/taleweave/taleweave/src"
	"github.com/taleweave/taleweave/srv/tlsutil"
	"github.com/taleweave/taleweave/srv/ui"
	"github.com/taleweave/taleweave/storybook"
)

func main() {
	// A missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := taleweave.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("building providers")
	}
	store, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("building session store")
	}

	gameUI := ui.NewGameUI(orch, store, storybook.NewCompiler())

	router := chi.NewRouter()
	router.Get("/health", handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", gameUI)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  5 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("tls", cfg.TLSEnabled).Msg("server starting")
		var err error
		if cfg.TLSEnabled {
			err = tlsutil.ListenAndServe(srv, cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// buildOrchestrator wires the configured provider pair for each operation.
// An empty secondary slot means no fallback for that operation.
func buildOrchestrator(cfg *taleweave.Config) (*taleweave.Orchestrator, error) {
	textPrimary, err := taleweave.NewTextProvider(cfg.TextPrimary, cfg)
	if err != nil {
		return nil, err
	}
	textSecondary, err := taleweave.NewTextProvider(cfg.TextSecondary, cfg)
	if err != nil {
		return nil, err
	}
	imagePrimary, err := taleweave.NewImageProvider(cfg.ImagePrimary, cfg)
	if err != nil {
		return nil, err
	}
	imageSecondary, err := taleweave.NewImageProvider(cfg.ImageSecondary, cfg)
	if err != nil {
		return nil, err
	}
	return &taleweave.Orchestrator{
		TextPrimary:    textPrimary,
		TextSecondary:  textSecondary,
		ImagePrimary:   imagePrimary,
		ImageSecondary: imageSecondary,
	}, nil
}

func buildStore(cfg *taleweave.Config) (taleweave.SessionStore, error) {
	switch cfg.SessionStore {
	case "memory":
		return taleweave.NewMemoryStore(), nil
	case "sqlite":
		return taleweave.NewSQLiteStore(cfg.SessionDB)
	default:
		return taleweave.NewFileStore(cfg.SessionFile)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
