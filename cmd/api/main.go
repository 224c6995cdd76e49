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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/config"
	"github.com/Victorugws/swift/internal/handler"
	"github.com/Victorugws/swift/internal/handler/ratelimit"
	"github.com/Victorugws/swift/internal/handler/voice"
	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/model/persona"
	"github.com/Victorugws/swift/internal/service/ai"
	"github.com/Victorugws/swift/internal/service/ambient"
	"github.com/Victorugws/swift/internal/service/identity"
	"github.com/Victorugws/swift/internal/service/messagelog"
	"github.com/Victorugws/swift/internal/service/speech"
	voicesvc "github.com/Victorugws/swift/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	assistant := persona.Resolve(persona.NewMemoryStore(persona.Seed()), cfg.Server.PersonaID).
		WithFacts(ai.ModelFact(cfg.AI))

	if !cfg.AI.Enabled() {
		return fmt.Errorf("ai provider %q is missing credentials", cfg.AI.Provider)
	}
	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("init chat model: %w", err)
	}
	aiService, err := ai.NewService(ctx, chatModel, assistant, logger)
	if err != nil {
		return fmt.Errorf("init ai service: %w", err)
	}

	speechService, err := speech.NewService(cfg.Speech.ToModel(), logger)
	if err != nil {
		return fmt.Errorf("init speech service: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info().Msg("redis connected")
	}

	store, closeStore, err := messagelog.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("failed to close message log")
		}
	}()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("message log ready")

	voiceID := cfg.Speech.VoiceID
	if voiceID == "" {
		voiceID = assistant.VoiceID
	}

	pipeline, err := voicesvc.New(voicesvc.Deps{
		Context:     ambient.NewProvider(ambient.LoadLocation(cfg.Server.Timezone), nil),
		Recognizer:  speechService.Recognizer,
		Identity:    identity.NewResolver(identityProvider(cfg.Identity, redisClient, logger), logger),
		Log:         messagelog.NewLogger(store, logger, messagelog.WithTimeout(cfg.Store.Timeout)),
		Generator:   aiService,
		Synthesizer: speechService.Synthesizer,
		VoiceID:     voiceID,
		Language:    cfg.Speech.ASRLanguage,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.PerMinute > 0 {
		if redisClient == nil {
			logger.Warn().Msg("RATE_LIMIT_PER_MINUTE set without REDIS_URL, rate limiting disabled")
		} else {
			limiter = ratelimit.New(redisClient, cfg.RateLimit.PerMinute, time.Minute, logger)
		}
	}

	router := handler.NewRouter(voice.New(pipeline, cfg.Server.MaxRequestBytes, logger), handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("persona", assistant.ID).
		Str("ai_provider", cfg.AI.Provider).
		Str("stt_provider", cfg.Speech.STTProvider).
		Msg("Swift backend listening")
	return runServer(ctx, srv)
}

// identityProvider picks local JWT verification when a secret is configured,
// else the Supabase auth endpoint. Results are cached when redis is available.
func identityProvider(cfg config.IdentityConfig, client *redis.Client, logger zerolog.Logger) identity.Provider {
	var provider identity.Provider
	switch {
	case cfg.JWTSecret != "":
		provider = identity.NewJWTProvider(cfg.JWTSecret)
	case cfg.SupabaseURL != "" && cfg.SupabaseAnonKey != "":
		provider = identity.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.Timeout)
	default:
		logger.Info().Msg("身份服务未配置，所有请求按 anonymous 处理")
		return nil
	}

	if client != nil && cfg.CacheTTL > 0 {
		return identity.NewCachedProvider(provider, client, cfg.CacheTTL, logger)
	}
	return provider
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
