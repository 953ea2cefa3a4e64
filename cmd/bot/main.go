package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/bot"
	"github.com/0xChaser/EasyBooking/internal/config"
	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/logging"
	"github.com/0xChaser/EasyBooking/internal/metrics"
	"github.com/0xChaser/EasyBooking/internal/repository"
	"github.com/0xChaser/EasyBooking/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Str("path", cfg.Exports.Path).Msg("create exports directory")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessions := initSessionStore(ctx, cfg, &logger)
	defer func() { _ = repository.Close(redisClient) }()

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.APITimeout()),
		api.WithRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst),
		api.WithLogger(logging.Component(&logger, "api-client")),
	)

	startMonitoring(ctx, cfg, client, redisClient, &logger)

	return startBot(ctx, cfg, client, sessions, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

// initSessionStore keeps tokens and rate-limit counters in Redis when it is
// configured, falling back to process memory.
func initSessionStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	fallback := repository.NewMemoryStore()
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis not configured, sessions are kept in memory")
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	store := repository.NewFailoverStore(repository.NewRedisStore(redisClient), fallback, logging.Component(logger, "session-store"))
	return redisClient, store
}

func startMonitoring(ctx context.Context, cfg *config.Config, client *api.Client, rdb *redis.Client, logger *zerolog.Logger) {
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go serve(ctx, cfg.Monitoring.PrometheusPort, metricsMux(), "metrics", logger)
	}
	go serve(ctx, cfg.Monitoring.HealthCheckPort, healthMux(ctx, client, rdb), "health", logger)
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func healthMux(ctx context.Context, client *api.Client, rdb *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ready (backend %s)", client.BaseURL())
	})
	return mux
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msgf("%s server listening", name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	client *api.Client,
	sessions domain.SessionRepository,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(service.NewBotWrapper(botAPI))

	telegramBot, err := bot.NewBot(
		tgService, cfg, client, sessions,
		bot.NewMetrics(prometheus.DefaultRegisterer),
		logging.Component(logger, "bot"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("create bot")
		return err
	}

	logger.Info().Str("api", cfg.API.BaseURL).Msg("Bot started")
	telegramBot.Start(ctx)
	telegramBot.Stop()

	logger.Info().Msg("Shutdown complete.")
	return nil
}
