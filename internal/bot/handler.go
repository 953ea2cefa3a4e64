package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0xChaser/EasyBooking/internal/dashboard"
	"github.com/0xChaser/EasyBooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const helpText = `Available commands:
/rooms - list rooms
/bookings - list bookings
/newroom - create a room
/book - book a room
/export - download bookings as a spreadsheet
/me - show your account
/logout - sign out
/cancel - abort the current dialog`

// keepValue is sent to keep a prefilled draft value.
const keepValue = "."

// skipValue leaves an optional field empty.
const skipValue = "-"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	l := zerolog.Ctx(ctx)
	c := b.chatFor(msg.From.ID, msg.Chat.ID)

	if msg.IsCommand() {
		command := msg.Command()
		l.Debug().Int64("user_id", c.userID).Str("command", command).Msg("Handling command")
		if b.metrics != nil {
			b.metrics.CommandsProcessed.WithLabelValues(command).Inc()
		}
		b.handleCommand(ctx, c, command)
		return
	}

	if c.step != StepNone {
		b.handleStep(ctx, c, msg)
		return
	}

	b.sendMessage(c.chatID, "I did not understand that. Send /help to see the available commands.")
}

func (b *Bot) handleCommand(ctx context.Context, c *chat, command string) {
	switch command {
	case "start":
		b.handleStart(ctx, c)
	case "help":
		b.sendMessage(c.chatID, helpText)
	case "login":
		b.handleLogin(ctx, c)
	case "register":
		b.handleRegister(ctx, c)
	case "logout":
		b.handleLogout(ctx, c)
	case "me":
		b.handleMe(ctx, c)
	case "rooms":
		if b.requireAuth(ctx, c) {
			b.showRooms(c, 0, 0)
		}
	case "bookings":
		if b.requireAuth(ctx, c) {
			b.showBookings(c, 0, 0)
		}
	case "newroom":
		b.handleNewRoom(ctx, c)
	case "book":
		b.handleBook(ctx, c)
	case "export":
		b.handleExport(ctx, c)
	case "cancel":
		b.abortDialog(c)
		b.sendMessage(c.chatID, "Cancelled.")
	default:
		b.sendMessage(c.chatID, "Unknown command. Send /help to see the available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, c *chat) {
	b.abortDialog(c)
	if b.ensureSession(ctx, c) {
		user := c.ws.Session.State().User
		b.sendMessage(c.chatID, fmt.Sprintf("Welcome back, %s!\n\n%s", user.FullName(), helpText))
		return
	}
	b.sendMessage(c.chatID, "Welcome to EasyBooking!\n\nSign in with /login or create an account with /register.")
}

func (b *Bot) handleLogin(ctx context.Context, c *chat) {
	if b.ensureSession(ctx, c) {
		user := c.ws.Session.State().User
		b.sendMessage(c.chatID, fmt.Sprintf("You are already signed in as %s. Send /logout first.", user.Email))
		return
	}
	c.reset()
	c.step = StepLoginEmail
	b.sendMessage(c.chatID, "Enter your email:")
}

func (b *Bot) handleRegister(ctx context.Context, c *chat) {
	if b.ensureSession(ctx, c) {
		b.sendMessage(c.chatID, "You are already signed in. Send /logout first.")
		return
	}
	c.reset()
	c.step = StepRegisterEmail
	b.sendMessage(c.chatID, "Enter the email for your new account:")
}

func (b *Bot) handleLogout(ctx context.Context, c *chat) {
	b.abortDialog(c)
	if !b.ensureSession(ctx, c) {
		b.sendMessage(c.chatID, "You are not signed in.")
		return
	}
	if err := c.ws.Session.Logout(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", c.userID).Msg("Failed to clear token on logout")
	}
	b.sendMessage(c.chatID, "👋 Signed out.")
}

func (b *Bot) handleMe(ctx context.Context, c *chat) {
	if !b.requireAuth(ctx, c) {
		return
	}
	user := c.ws.Session.State().User

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> [%s]\n", html.EscapeString(user.FullName()), html.EscapeString(user.Initials()))
	fmt.Fprintf(&sb, "📧 %s\n", html.EscapeString(user.Email))
	if !user.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "🗓 Member since %s\n", user.CreatedAt.In(b.location).Format(models.DateLayout))
	}
	if user.IsSuperuser {
		sb.WriteString("🛡 Administrator\n")
	}
	if !user.IsVerified {
		sb.WriteString("✉️ Email not verified\n")
	}
	b.sendHTML(c.chatID, sb.String())
}

func (b *Bot) handleNewRoom(ctx context.Context, c *chat) {
	if !b.requireAuth(ctx, c) {
		return
	}
	b.abortDialog(c)
	c.ws.RoomForm.OpenCreate()
	c.step = StepRoomName
	b.sendMessage(c.chatID, "New room. Enter the name:")
}

func (b *Bot) handleBook(ctx context.Context, c *chat) {
	if !b.requireAuth(ctx, c) {
		return
	}
	b.abortDialog(c)
	if err := c.ws.BookingForm.Open(ctx, "", ""); err != nil {
		b.sendMessage(c.chatID, "⚠️ Failed to load rooms. Please try again later.")
		return
	}
	c.step = StepBookingRoom
	b.sendRoomPicker(c)
}

func (b *Bot) handleExport(ctx context.Context, c *chat) {
	if !b.requireAuth(ctx, c) {
		return
	}
	if err := b.loadList(c.ws.Bookings.ListView); err != nil {
		return
	}
	_ = b.loadList(c.ws.Rooms.ListView)

	path, err := b.exporter.Bookings(c.ws.Bookings.Items(), c.ws.Rooms.Items(), strconv.FormatInt(c.userID, 10))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to export bookings")
		b.sendMessage(c.chatID, "❌ Failed to create the export file.")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			b.logger.Warn().Err(err).Str("file_path", path).Msg("Failed to remove export file")
		}
	}()

	caption := fmt.Sprintf("Bookings as of %s", time.Now().In(b.location).Format("02.01.2006 15:04"))
	if _, err := b.tgService.SendDocument(c.chatID, path, caption); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send export file")
		b.sendMessage(c.chatID, "❌ Failed to send the export file.")
	}
}

// abortDialog closes any open dialog and drops the text flow.
func (b *Bot) abortDialog(c *chat) {
	c.ws.RoomForm.Close()
	c.ws.BookingForm.Close()
	c.reset()
}

// loadList mounts the list on first use and re-fetches it afterwards.
// Failures are already reported by the dashboard notifier.
func (b *Bot) loadList(v interface {
	Mounted() bool
	Mount(ctx context.Context) error
	Refresh() error
}) error {
	if !v.Mounted() {
		return v.Mount(b.runCtx)
	}
	return v.Refresh()
}

func (b *Bot) handleStep(ctx context.Context, c *chat, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch c.step {
	case StepLoginEmail:
		c.email = text
		c.step = StepLoginPassword
		b.sendMessage(c.chatID, "Enter your password:")

	case StepLoginPassword:
		b.deleteMessage(c.chatID, msg.MessageID)
		email := c.email
		c.reset()
		if err := c.ws.Session.Login(ctx, email, msg.Text); err != nil {
			b.sendError(c.chatID, err)
			return
		}
		user := c.ws.Session.State().User
		b.sendMessage(c.chatID, fmt.Sprintf("✅ Signed in as %s.\n\n%s", user.FullName(), helpText))

	case StepRegisterEmail:
		c.register.Email = text
		c.step = StepRegisterPassword
		b.sendMessage(c.chatID, "Choose a password:")

	case StepRegisterPassword:
		b.deleteMessage(c.chatID, msg.MessageID)
		c.register.Password = msg.Text
		c.step = StepRegisterFirstName
		b.sendMessage(c.chatID, "Your first name:")

	case StepRegisterFirstName:
		c.register.FirstName = text
		c.step = StepRegisterLastName
		b.sendMessage(c.chatID, "Your last name:")

	case StepRegisterLastName:
		c.register.LastName = text
		req := c.register
		c.reset()
		if err := c.ws.Session.Register(ctx, req); err != nil {
			b.sendError(c.chatID, err)
			return
		}
		b.sendMessage(c.chatID, "✅ Account created. Send /login to sign in.")

	case StepRoomName, StepRoomAddress, StepRoomCapacity, StepRoomDescription, StepRoomStatus:
		b.handleRoomStep(ctx, c, text)

	case StepBookingRoom:
		b.sendMessage(c.chatID, "Pick a room with the buttons above, or send /cancel.")

	case StepBookingDate, StepBookingStart, StepBookingEnd:
		b.handleBookingStep(ctx, c, text)
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.tgService.DeleteMessage(chatID, messageID); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to delete message")
	}
}

// handleRoomStep fills the room draft one field per message.
func (b *Bot) handleRoomStep(ctx context.Context, c *chat, text string) {
	form := c.ws.RoomForm
	if !form.IsOpen() {
		c.reset()
		b.sendMessage(c.chatID, "The dialog was closed. Start again with /newroom.")
		return
	}
	keep := text == keepValue

	switch c.step {
	case StepRoomName:
		if !keep {
			_ = form.Update(func(d *dashboard.RoomDraft) { d.Name = text })
		}
		c.step = StepRoomAddress
		b.sendMessage(c.chatID, "Address"+keepHint(form.Draft().Address)+":")

	case StepRoomAddress:
		if !keep {
			_ = form.Update(func(d *dashboard.RoomDraft) { d.Address = text })
		}
		c.step = StepRoomCapacity
		b.sendMessage(c.chatID, "Capacity"+keepHint(form.Draft().Capacity)+":")

	case StepRoomCapacity:
		if !keep {
			_ = form.Update(func(d *dashboard.RoomDraft) { d.Capacity = text })
		}
		c.step = StepRoomDescription
		b.sendMessage(c.chatID, "Description, or - to leave it empty"+keepHint(form.Draft().Description)+":")

	case StepRoomDescription:
		switch text {
		case keepValue:
		case skipValue:
			_ = form.Update(func(d *dashboard.RoomDraft) { d.Description = "" })
		default:
			_ = form.Update(func(d *dashboard.RoomDraft) { d.Description = text })
		}
		if form.Editing() != "" {
			c.step = StepRoomStatus
			b.sendStatusPicker(c)
			return
		}
		b.submitRoom(ctx, c)

	case StepRoomStatus:
		b.sendMessage(c.chatID, "Pick a status with the buttons above, or send /cancel.")
	}
}

// submitRoom sends the draft. A rejected draft restarts the flow at the
// offending field with the other values kept.
func (b *Bot) submitRoom(ctx context.Context, c *chat) {
	_, err := c.ws.RoomForm.Submit(ctx)
	if err == nil {
		c.reset()
		return
	}
	if !c.ws.RoomForm.IsOpen() {
		c.reset()
		return
	}

	var verr *dashboard.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field("name") != "":
		c.step = StepRoomName
		b.sendMessage(c.chatID, "Enter the name:")
	case errors.As(err, &verr) && verr.Field("address") != "":
		c.step = StepRoomAddress
		b.sendMessage(c.chatID, "Enter the address:")
	case errors.As(err, &verr) && verr.Field("capacity") != "":
		c.step = StepRoomCapacity
		b.sendMessage(c.chatID, "Enter the capacity:")
	default:
		c.step = StepRoomName
		b.sendMessage(c.chatID, "Let's try again. Name"+keepHint(c.ws.RoomForm.Draft().Name)+", or /cancel:")
	}
}

// handleBookingStep collects the date and the two times of day.
func (b *Bot) handleBookingStep(ctx context.Context, c *chat, text string) {
	form := c.ws.BookingForm
	if !form.IsOpen() {
		c.reset()
		b.sendMessage(c.chatID, "The dialog was closed. Start again with /book.")
		return
	}
	keep := text == keepValue

	switch c.step {
	case StepBookingDate:
		_ = form.Update(func(d *dashboard.BookingDraft) { d.Date = normalizeDate(text) })
		c.step = StepBookingStart
		b.sendMessage(c.chatID, "Start time, HH:MM"+keepHint(form.Draft().StartTime)+":")

	case StepBookingStart:
		if !keep {
			_ = form.Update(func(d *dashboard.BookingDraft) { d.StartTime = text })
		}
		c.step = StepBookingEnd
		b.sendMessage(c.chatID, "End time, HH:MM"+keepHint(form.Draft().EndTime)+":")

	case StepBookingEnd:
		if !keep {
			_ = form.Update(func(d *dashboard.BookingDraft) { d.EndTime = text })
		}
		b.submitBooking(ctx, c)
	}
}

func (b *Bot) submitBooking(ctx context.Context, c *chat) {
	_, err := c.ws.BookingForm.Submit(ctx)
	if err == nil {
		c.reset()
		if b.metrics != nil {
			b.metrics.BookingsCreated.Inc()
		}
		return
	}
	if !c.ws.BookingForm.IsOpen() {
		c.reset()
		return
	}

	var verr *dashboard.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field("room") != "":
		c.step = StepBookingRoom
		b.sendRoomPicker(c)
	case errors.As(err, &verr) && verr.Field("start_time") != "":
		c.step = StepBookingStart
		b.sendMessage(c.chatID, "Enter the start time, HH:MM:")
	case errors.As(err, &verr) && verr.Field("end_time") != "":
		c.step = StepBookingEnd
		b.sendMessage(c.chatID, "Enter the end time, HH:MM:")
	default:
		c.step = StepBookingDate
		b.sendMessage(c.chatID, "Enter the date again (YYYY-MM-DD or DD.MM.YYYY), or /cancel:")
	}
}

// normalizeDate accepts DD.MM.YYYY next to the ISO form.
func normalizeDate(text string) string {
	if t, err := time.Parse("02.01.2006", text); err == nil {
		return t.Format(models.DateLayout)
	}
	return text
}
