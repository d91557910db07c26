package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/voice-assistant/internal/assistant"
	"github.com/lexiqai/voice-assistant/internal/cache"
	"github.com/lexiqai/voice-assistant/internal/config"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/resilience"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/tts"
	"github.com/lexiqai/voice-assistant/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("stt_provider", cfg.STTProvider).
		Str("tts_provider", cfg.TTSProvider).
		Str("completion_model", cfg.CompletionModel).
		Str("completion_context", cfg.CompletionContext).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Assistant Service starting")

	ctx := context.Background()

	// Transcription backend behind the silence check and circuit breaker
	backend, closeBackend, err := newTranscriber(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.STTProvider).Msg("Failed to create transcription client")
	}
	defer closeBackend()

	breaker := resilience.NewCircuitBreaker(cfg.STTProvider,
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	).OnStateChange(func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
		logger.Warn().Str("service", name).Str("state", state.String()).Msg("Circuit breaker state changed")
	})
	transcriber := stt.NewGuarded(backend, breaker, cfg.SilenceRMSThreshold)

	// One response cache for the whole process, shared by every session
	responseCache := cache.New(cfg.CacheMaxEntries)
	responderOpts := []llm.ResponderOption{
		llm.WithTimeout(time.Duration(cfg.CompletionTimeout) * time.Second),
		llm.WithSystemPrompt(cfg.SystemPrompt),
	}
	if cfg.CompletionContext == config.ContextHistory {
		responderOpts = append(responderOpts, llm.WithHistory())
	}
	responder := llm.NewResponder(llm.NewOpenAICompleter(cfg), responseCache, responderOpts...)

	synthesizer, synthCheck := newSynthesizer(cfg)

	newSession := func(opts ...assistant.Option) *assistant.Session {
		base := []assistant.Option{
			assistant.WithArtifactDir(cfg.ArtifactDir()),
			assistant.WithStageTimeouts(
				time.Duration(cfg.STTTimeout)*time.Second,
				time.Duration(cfg.TTSTimeout)*time.Second,
			),
		}
		return assistant.NewSession(transcriber, responder, synthesizer, append(base, opts...)...)
	}

	// Create HTTP server
	mux := http.NewServeMux()

	// Chat page and websocket sessions
	web.NewServer(newSession, cfg.MaxCaptureBytes).Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness only inspects local state so probes never spend API quota
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"transcription": breaker.Ready,
		"completion": func(ctx context.Context) (bool, error) {
			return cfg.GroqAPIKey != "", nil
		},
		"synthesis": synthCheck,
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Websocket sessions outlive any write timeout, so only headers are bounded
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	stats := responseCache.Stats()
	breakerState, sttRequests, sttFailures, _ := breaker.GetStats()
	logger.Info().
		Int("cache_entries", responseCache.Len()).
		Int64("cache_hits", stats.Hits).
		Int64("cache_misses", stats.Misses).
		Str("stt_circuit", breakerState.String()).
		Int64("stt_requests", sttRequests).
		Int64("stt_failures", sttFailures).
		Msg("Server exited gracefully")
}

func newTranscriber(ctx context.Context, cfg *config.Config) (stt.Transcriber, func(), error) {
	switch cfg.STTProvider {
	case config.STTProviderDeepgram:
		return stt.NewDeepgramTranscriber(cfg), func() {}, nil
	default:
		g, err := stt.NewGoogleTranscriber(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	}
}

func newSynthesizer(cfg *config.Config) (tts.Synthesizer, observability.HealthCheckFunc) {
	switch cfg.TTSProvider {
	case config.TTSProviderCartesia:
		return tts.NewCartesiaSynthesizer(cfg), func(ctx context.Context) (bool, error) {
			return cfg.CartesiaAPIKey != "", nil
		}
	default:
		e := tts.NewEspeakSynthesizer(cfg)
		return e, func(ctx context.Context) (bool, error) {
			if err := e.Available(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
}
