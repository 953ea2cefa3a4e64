package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/config"
	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/export"
	"github.com/0xChaser/EasyBooking/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// Bot renders the booking dashboard in Telegram. Every Telegram user gets
// an own session and workspace; updates are processed one at a time.
type Bot struct {
	tgService domain.TelegramService
	config    *config.Config
	limiter   domain.RateLimiter
	client    *api.Client
	registry  *session.Registry
	exporter  *export.Exporter
	location  *time.Location
	metrics   *Metrics
	logger    *zerolog.Logger

	// runCtx bounds mounted lists; it outlives single updates.
	runCtx context.Context

	mu    sync.Mutex
	chats map[int64]*chat
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	client *api.Client,
	sessions domain.SessionRepository,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry(client, sessions, cfg.Session.CookieName, session.Options{
		TTL:    cfg.SessionTTL(),
		Logger: logger,
	})

	return &Bot{
		tgService: tgService,
		config:    cfg,
		limiter:   sessions,
		client:    client,
		registry:  registry,
		exporter:  export.NewExporter(cfg.Exports.Path, loc, logger),
		location:  loc,
		metrics:   metrics,
		logger:    logger,
		runCtx:    context.Background(),
		chats:     make(map[int64]*chat),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b.runCtx = ctx
	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.closeChats()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeChats()
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil && update.Message.From != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
		}

		if userID == 0 {
			return
		}

		if !b.checkRateLimit(updateCtx, userID, update) {
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		b.handleMessage(updateCtx, update.Message)
	})
}
