package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/0xChaser/EasyBooking/internal/dashboard"
	"github.com/0xChaser/EasyBooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	callbackNoop    = "noop"
	callbackDismiss = "dismiss"
	callbackAbort   = "abort"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	data := callback.Data
	userID := callback.From.ID

	// answer right away so the client stops the spinner
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to answer callback")
	}

	if callback.Message == nil {
		return
	}
	c := b.chatFor(userID, callback.Message.Chat.ID)
	messageID := callback.Message.MessageID

	zerolog.Ctx(ctx).Debug().Int64("user_id", userID).Str("data", data).Msg("Handling callback")

	switch {
	case data == callbackNoop:

	case data == callbackDismiss:
		b.deleteMessage(c.chatID, messageID)

	case data == callbackAbort:
		b.abortDialog(c)
		b.deleteMessage(c.chatID, messageID)
		b.sendMessage(c.chatID, "Cancelled.")

	case strings.HasPrefix(data, "rooms_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "rooms_page:"))
		if b.requireAuth(ctx, c) {
			b.showRooms(c, messageID, page)
		}

	case strings.HasPrefix(data, "bookings_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "bookings_page:"))
		if b.requireAuth(ctx, c) {
			b.showBookings(c, messageID, page)
		}

	case strings.HasPrefix(data, "room_book:"):
		b.handleBookRoom(ctx, c, strings.TrimPrefix(data, "room_book:"))

	case strings.HasPrefix(data, "book_pick:"):
		b.handlePickRoom(c, strings.TrimPrefix(data, "book_pick:"))

	case strings.HasPrefix(data, "room_edit:"):
		b.handleEditRoom(ctx, c, strings.TrimPrefix(data, "room_edit:"))

	case strings.HasPrefix(data, "room_status:"):
		b.handleRoomStatus(ctx, c, messageID, models.RoomStatus(strings.TrimPrefix(data, "room_status:")))

	case strings.HasPrefix(data, "room_delete_yes:"):
		b.deleteMessage(c.chatID, messageID)
		b.handleDeleteRoom(ctx, c, strings.TrimPrefix(data, "room_delete_yes:"))

	case strings.HasPrefix(data, "room_delete:"):
		if !b.requireAuth(ctx, c) {
			return
		}
		if room, ok := b.findRoom(c, strings.TrimPrefix(data, "room_delete:")); ok {
			b.sendConfirmation(c, fmt.Sprintf("Delete room %q?", room.Name), "room_delete_yes:"+room.ID.String())
		}

	case strings.HasPrefix(data, "booking_cancel_yes:"):
		b.deleteMessage(c.chatID, messageID)
		b.handleCancelBooking(ctx, c, strings.TrimPrefix(data, "booking_cancel_yes:"))

	case strings.HasPrefix(data, "booking_cancel:"):
		if !b.requireAuth(ctx, c) {
			return
		}
		booking, ok := b.findBooking(c, strings.TrimPrefix(data, "booking_cancel:"))
		if !ok {
			return
		}
		if action := dashboard.CancelAction(booking); !action.Enabled {
			b.sendMessage(c.chatID, fmt.Sprintf("This booking is %s and can no longer be cancelled.", strings.ToLower(action.Label)))
			return
		}
		b.sendConfirmation(c, fmt.Sprintf("Cancel the booking of %s?", booking.RoomName(dashboard.UnknownRoom)), "booking_cancel_yes:"+booking.ID.String())
	}
}

func (b *Bot) handleBookRoom(ctx context.Context, c *chat, id string) {
	if !b.requireAuth(ctx, c) {
		return
	}
	room, ok := b.findRoom(c, id)
	if !ok {
		return
	}
	if action := dashboard.BookAction(room); !action.Enabled {
		b.sendMessage(c.chatID, fmt.Sprintf("This room is %s.", strings.ToLower(action.Label)))
		return
	}

	b.abortDialog(c)
	if err := c.ws.BookingForm.Open(ctx, room.ID.String(), room.Name); err != nil {
		b.sendError(c.chatID, err)
		return
	}
	c.step = StepBookingDate
	b.sendMessage(c.chatID, c.ws.BookingForm.Title()+"\n\nEnter the date (YYYY-MM-DD or DD.MM.YYYY):")
}

func (b *Bot) handlePickRoom(c *chat, id string) {
	if c.step != StepBookingRoom {
		b.sendMessage(c.chatID, "This selection has expired. Start again with /book.")
		return
	}
	if err := c.ws.BookingForm.SelectRoom(id); err != nil {
		b.sendError(c.chatID, err)
		return
	}
	c.step = StepBookingDate
	b.sendMessage(c.chatID, c.ws.BookingForm.Title()+"\n\nEnter the date (YYYY-MM-DD or DD.MM.YYYY):")
}

func (b *Bot) handleEditRoom(ctx context.Context, c *chat, id string) {
	if !b.requireAuth(ctx, c) {
		return
	}
	room, ok := b.findRoom(c, id)
	if !ok {
		return
	}
	b.abortDialog(c)
	c.ws.RoomForm.OpenEdit(room)
	c.step = StepRoomName
	b.sendMessage(c.chatID, "Editing "+room.Name+". Name"+keepHint(room.Name)+":")
}

func (b *Bot) handleRoomStatus(ctx context.Context, c *chat, messageID int, status models.RoomStatus) {
	if c.step != StepRoomStatus || !c.ws.RoomForm.IsOpen() {
		b.sendMessage(c.chatID, "This selection has expired.")
		return
	}
	b.deleteMessage(c.chatID, messageID)
	_ = c.ws.RoomForm.Update(func(d *dashboard.RoomDraft) { d.Status = status })
	b.submitRoom(ctx, c)
}

func (b *Bot) handleDeleteRoom(ctx context.Context, c *chat, id string) {
	if !b.requireAuth(ctx, c) {
		return
	}
	room, ok := b.findRoom(c, id)
	if !ok {
		return
	}
	// the dashboard reports failures through the chat notifier
	_ = c.ws.Rooms.Delete(ctx, room)
}

func (b *Bot) handleCancelBooking(ctx context.Context, c *chat, id string) {
	if !b.requireAuth(ctx, c) {
		return
	}
	booking, ok := b.findBooking(c, id)
	if !ok {
		return
	}
	if err := c.ws.Bookings.Cancel(ctx, booking); errors.Is(err, dashboard.ErrActionDisabled) {
		b.sendError(c.chatID, err)
	}
}

// findRoom looks id up in the loaded rooms, re-fetching once when missing.
func (b *Bot) findRoom(c *chat, id string) (models.Room, bool) {
	if room, ok := c.ws.Rooms.Find(id); ok {
		return room, true
	}
	if err := b.loadList(c.ws.Rooms.ListView); err != nil {
		return models.Room{}, false
	}
	room, ok := c.ws.Rooms.Find(id)
	if !ok {
		b.sendMessage(c.chatID, "Room not found. Send /rooms to reload the list.")
	}
	return room, ok
}

func (b *Bot) findBooking(c *chat, id string) (models.Booking, bool) {
	if booking, ok := c.ws.Bookings.Find(id); ok {
		return booking, true
	}
	if err := b.loadList(c.ws.Bookings.ListView); err != nil {
		return models.Booking{}, false
	}
	booking, ok := c.ws.Bookings.Find(id)
	if !ok {
		b.sendMessage(c.chatID, "Booking not found. Send /bookings to reload the list.")
	}
	return booking, ok
}
