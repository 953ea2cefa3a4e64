package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xChaser/EasyBooking/internal/dashboard"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/models"
	"github.com/0xChaser/EasyBooking/internal/session"
)

// Steps of the multi-message text flows.
const (
	StepNone              = ""
	StepLoginEmail        = "login_email"
	StepLoginPassword     = "login_password"
	StepRegisterEmail     = "register_email"
	StepRegisterPassword  = "register_password"
	StepRegisterFirstName = "register_first_name"
	StepRegisterLastName  = "register_last_name"
	StepRoomName          = "room_name"
	StepRoomAddress       = "room_address"
	StepRoomCapacity      = "room_capacity"
	StepRoomDescription   = "room_description"
	StepRoomStatus        = "room_status"
	StepBookingRoom       = "booking_room"
	StepBookingDate       = "booking_date"
	StepBookingStart      = "booking_start"
	StepBookingEnd        = "booking_end"
)

// chat is the per-user state: the dashboard workspace plus the step of the
// current text flow.
type chat struct {
	userID int64
	chatID int64
	ws     *dashboard.Workspace

	step     string
	email    string
	register models.RegisterRequest
}

func (c *chat) reset() {
	c.step = StepNone
	c.email = ""
	c.register = models.RegisterRequest{}
}

func isDialogStep(step string) bool {
	return strings.HasPrefix(step, "room_") || strings.HasPrefix(step, "booking_")
}

// chatFor returns the chat of userID, creating its workspace on first contact.
func (b *Bot) chatFor(userID, chatID int64) *chat {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[userID]; ok {
		c.chatID = chatID
		return c
	}

	bus := events.NewEventBus()
	store, _ := b.registry.Get(userID, bus)
	logger := b.logger.With().Int64("user_id", userID).Logger()

	c := &chat{userID: userID, chatID: chatID}
	c.ws = dashboard.NewWorkspace(store, b.client.WithTokenSource(store), bus, dashboard.Deps{
		Notifier:     chatNotifier{bot: b, chat: c},
		Confirmer:    dashboard.AlwaysConfirm,
		Logger:       &logger,
		Location:     b.location,
		DefaultStart: b.config.Dashboard.DefaultStartTime,
		DefaultEnd:   b.config.Dashboard.DefaultEndTime,
	})
	store.Subscribe(func(st session.State) {
		if !st.Authenticated() && isDialogStep(c.step) {
			c.reset()
		}
	})
	b.chats[userID] = c

	if b.metrics != nil {
		b.metrics.ActiveSessions.Set(float64(len(b.chats)))
	}
	return c
}

func (b *Bot) closeChats() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.chats {
		c.ws.Close()
	}
}

// ensureSession runs the first identity check of the chat and reports
// whether the user is signed in.
func (b *Bot) ensureSession(ctx context.Context, c *chat) bool {
	if c.ws.Gate() == dashboard.GateLoading {
		if err := c.ws.Session.Init(ctx); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", c.userID).Msg("Session init failed")
		}
	}
	return c.ws.Gate() == dashboard.GateAuthenticated
}

func (b *Bot) requireAuth(ctx context.Context, c *chat) bool {
	if b.ensureSession(ctx, c) {
		return true
	}
	b.sendMessage(c.chatID, "🔒 Please /login first.")
	return false
}

// chatNotifier delivers dashboard notifications to the chat.
type chatNotifier struct {
	bot  *Bot
	chat *chat
}

func (n chatNotifier) Success(_ context.Context, msg string) {
	n.bot.sendMessage(n.chat.chatID, "✅ "+msg)
}

func (n chatNotifier) Error(_ context.Context, msg string) {
	n.bot.sendMessage(n.chat.chatID, "⚠️ "+msg)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	if _, err := b.tgService.SendHTML(chatID, text, nil); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendError(chatID int64, err error) {
	b.sendMessage(chatID, b.getErrorMessage(err))
}

// keepHint tells the user how to keep a prefilled value.
func keepHint(current string) string {
	if current == "" {
		return ""
	}
	return fmt.Sprintf(" (send . to keep %q)", current)
}
