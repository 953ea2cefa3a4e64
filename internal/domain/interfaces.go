package domain

import (
	"context"
	"time"

	"github.com/0xChaser/EasyBooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TokenStore is durable cookie-like storage for bearer tokens. A token past
// its expiry reads back as the empty string.
type TokenStore interface {
	GetToken(ctx context.Context, key string) (string, error)
	SetToken(ctx context.Context, key, token string, ttl time.Duration) error
	ClearToken(ctx context.Context, key string) error
}

// RateLimiter counts messages per Telegram user inside a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// SessionRepository is the storage the Telegram front-end runs on.
type SessionRepository interface {
	TokenStore
	RateLimiter
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, req models.RegisterRequest) error
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

type RoomAPI interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	CreateRoom(ctx context.Context, in models.RoomInput) (*models.Room, error)
	UpdateRoom(ctx context.Context, id string, in models.RoomInput) (*models.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

type BookingAPI interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CreateBooking(ctx context.Context, in models.BookingInput) (*models.Booking, error)
	CancelBooking(ctx context.Context, id string) (*models.Booking, error)
}

// Notifier delivers one-shot user notifications.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendHTML(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, path, caption string) (tgbotapi.Message, error)
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
