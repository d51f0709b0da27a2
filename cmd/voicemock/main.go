package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/api"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/auth"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/config"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/orchestrator"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider/deepgram"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider/groq"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/safety"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/server"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/session"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/telemetry"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/ttscache"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("voicemock-api", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store := session.New(session.WithTTL(cfg.Session.TTL))
	cache := ttscache.New(ttscache.WithTTL(cfg.TTS.CacheTTL))
	tokens := auth.NewTokenService(cfg.SecretKey, auth.WithMaxAge(cfg.Session.TTL))
	filter := safety.New(cfg.Safety.Enabled, cfg.Safety.PatternsFile, logger)

	stt := deepgram.NewSTT(cfg.STT.APIKey, deepgram.WithSTTTimeout(cfg.STT.Timeout))
	llm := groq.New(cfg.LLM.APIKey,
		groq.WithModel(cfg.LLM.Model),
		groq.WithTimeout(cfg.LLM.Timeout),
		groq.WithMaxTokens(cfg.LLM.MaxTokens),
		groq.WithPromptTokenBudget(cfg.LLM.PromptTokenBudget),
		groq.WithLogger(logger),
	)
	tts := deepgram.NewTTS(cfg.TTS.APIKey,
		deepgram.WithTTSTimeout(cfg.TTS.Timeout),
		deepgram.WithVoiceModel(cfg.TTS.Model),
	)

	turns := orchestrator.New(stt, llm, tts, cache,
		orchestrator.WithSafetyFilter(filter),
		orchestrator.WithLogger(logger),
	)

	handlers := api.NewHandlers(store, cache, tokens, turns, logger,
		api.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	)

	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout, logger)
	handlers.Register(srv.Router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runMaintenance(ctx, store, cache, cfg.Session.SweepInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}
}

// runMaintenance periodically sweeps expired sessions and cleans the TTS
// cache. Bounded memory growth only; correctness never depends on it.
func runMaintenance(ctx context.Context, store *session.Store, cache *ttscache.Cache, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept := store.SweepExpired(store.TTL())
			cleaned := cache.Cleanup()
			if swept > 0 || cleaned > 0 {
				logger.Info("maintenance sweep",
					slog.Int("sessions_expired", swept),
					slog.Int("tts_entries_removed", cleaned),
				)
			}
		}
	}
}
