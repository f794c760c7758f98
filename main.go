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
	"github.com/spf13/afero"

	"github.com/hotsheetiq/frontdesk/call"
	"github.com/hotsheetiq/frontdesk/config"
	"github.com/hotsheetiq/frontdesk/dialog"
	"github.com/hotsheetiq/frontdesk/directory"
	"github.com/hotsheetiq/frontdesk/monitor"
	"github.com/hotsheetiq/frontdesk/rules"
	"github.com/hotsheetiq/frontdesk/server"
	"github.com/hotsheetiq/frontdesk/tickets"
	"github.com/hotsheetiq/frontdesk/tts"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02T15:04:05.000-07:00",
	}).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339Nano

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	callManager, err := call.NewManager(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create call manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go callManager.StartCleanupRoutine(ctx)

	// Taught rules survive restarts through Redis.
	store := rules.NewStore(callManager.Redis())
	if err := store.LoadFromRedis(ctx); err != nil {
		log.Warn().Err(err).Msg("could not load stored rules")
	} else {
		log.Info().Int("rules", store.Len()).Msg("rules loaded")
	}

	var lister directory.PropertyLister
	var backend tickets.Backend
	if cfg.DirectoryAPIURL != "" {
		dirClient := directory.NewClient(cfg.DirectoryAPIURL, cfg.DirectoryAPIKey)
		lister = dirClient
		backend = dirClient
	} else {
		log.Warn().Msg("no directory API configured, using known addresses only")
	}
	matcher := directory.NewMatcher(lister)
	admin := rules.NewAdmin(store, matcher)
	issuer := tickets.NewIssuer(backend)

	var synth tts.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		synth = tts.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice)
	} else {
		log.Warn().Msg("no ElevenLabs key configured, replies will use <Say>")
	}
	audio := tts.NewAudioCache(synth, afero.NewOsFs(), cfg.PublicBaseURL)

	var responder dialog.Responder
	if cfg.OpenAIAPIKey != "" {
		responder = dialog.NewOpenAIResponder(cfg.OpenAIAPIKey)
	}
	engine := dialog.NewEngine(store, matcher, issuer, responder)

	hub := server.NewHub(cfg.AllowedOrigins)
	callManager.OnEvict = func(s *call.Session) {
		hub.Broadcast(monitor.NewCallEvictedEvent(s.SID, "idle"))
	}

	srv := server.NewServer(cfg, callManager, engine, admin, store, audio, hub)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
		callManager.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}
