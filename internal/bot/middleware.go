package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// checkRateLimit reports whether the update may be processed. A failing
// limiter lets the update through.
func (b *Bot) checkRateLimit(ctx context.Context, userID int64, update tgbotapi.Update) bool {
	if b.limiter == nil {
		return true
	}
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.limiter.CheckRateLimit(ctx, userID, b.config.Bot.RateLimitMessages, window)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if allowed {
		return true
	}

	b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	if update.Message != nil {
		b.sendMessage(update.Message.Chat.ID, "⚠️ You are sending messages too often. Please wait a moment.")
	} else if update.CallbackQuery != nil {
		_ = b.tgService.AnswerCallback(update.CallbackQuery.ID, "Too many requests, slow down")
	}
	return false
}
