package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deskbridge/backend/internal/config"
	"github.com/deskbridge/backend/internal/db"
	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/halo"
	"github.com/deskbridge/backend/internal/helpdesk"
	httpapi "github.com/deskbridge/backend/internal/http"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/service"
	"github.com/deskbridge/backend/internal/zendesk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "deskbridge").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	table, err := fieldmap.Load(cfg.FieldMapPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.FieldMapPath).Msg("failed to load field map")
	}
	logger.Info().Int("entries", table.Len()).Msg("field map loaded")

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	newZendesk := func(cred models.Credential) helpdesk.Manager {
		base := cfg.ZendeskBaseURL
		if base == "" {
			base = zendesk.BaseURLForSubdomain(cred.Subdomain)
		}
		return zendesk.NewManager(zendesk.NewClient(base, cred.Email, cred.Token, httpClient), logger)
	}
	newHalo := func(cred models.Credential) helpdesk.Manager {
		client := halo.NewClient(cfg.HaloBaseURL, cred.HaloClientID, cred.HaloClientSecret, httpClient)
		return halo.NewManager(client, table, logger)
	}
	dispatcher := service.NewDispatcher(newZendesk, newHalo, service.LogReporter{Logger: logger}, logger)

	proxy := &zendesk.Proxy{BaseURL: cfg.ZendeskBaseURL, HTTPClient: httpClient}

	router := httpapi.Router(cfg, store, dispatcher, proxy, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
