package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/0xChaser/EasyBooking/internal/dashboard"
	"github.com/0xChaser/EasyBooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const clockFormat = "02.01.2006 15:04"

type PaginationParams struct {
	ChatID     int64
	MessageID  int // 0 if new message
	Page       int
	Title      string
	PagePrefix string
	Empty      string
}

// renderPaginatedList renders one page of a list with navigation buttons,
// editing MessageID in place when set.
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	itemsPerPage := b.config.Bot.PaginationSize
	if itemsPerPage <= 0 {
		itemsPerPage = models.DefaultPaginationSize
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}
	if params.Page < 0 {
		params.Page = 0
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	var message strings.Builder
	fmt.Fprintf(&message, "<b>%s</b>\n\n", params.Title)
	if totalCount == 0 {
		message.WriteString(params.Empty)
	}
	if totalPages > 1 {
		fmt.Fprintf(&message, "Page %d of %d\n\n", params.Page+1, totalPages)
	}

	content, keyboard := renderer(startIdx, endIdx)
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	var markup *tgbotapi.InlineKeyboardMarkup
	if len(keyboard) > 0 {
		m := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
		markup = &m
	}

	var err error
	if params.MessageID != 0 {
		_, err = b.tgService.EditMessage(params.ChatID, params.MessageID, message.String(), markup)
	} else {
		_, err = b.tgService.SendHTML(params.ChatID, message.String(), markup)
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to render list")
	}
}

// showRooms loads the rooms and renders one page.
func (b *Bot) showRooms(c *chat, messageID, page int) {
	if err := b.loadList(c.ws.Rooms.ListView); err != nil {
		return
	}
	rooms := c.ws.Rooms.Items()

	params := PaginationParams{
		ChatID:     c.chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      "Rooms",
		PagePrefix: "rooms_page:",
		Empty:      "No rooms yet. Create one with /newroom.",
	}
	b.renderPaginatedList(params, len(rooms), func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, room := range rooms[startIdx:endIdx] {
			n := startIdx + i + 1
			fmt.Fprintf(&content, "%d. <b>%s</b> · %s\n", n, html.EscapeString(room.Name), dashboard.StatusLabel(string(room.Status)))
			fmt.Fprintf(&content, "   📍 %s\n", html.EscapeString(room.Address))
			fmt.Fprintf(&content, "   👥 %d\n", room.Capacity)
			if desc := room.DescriptionText(); desc != "" {
				fmt.Fprintf(&content, "   📝 %s\n", html.EscapeString(desc))
			}
			content.WriteString("\n")

			id := room.ID.String()
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
				actionButton(fmt.Sprintf("%d. ", n), dashboard.BookAction(room), "room_book:"+id),
				tgbotapi.NewInlineKeyboardButtonData("✏️", "room_edit:"+id),
				tgbotapi.NewInlineKeyboardButtonData("🗑", "room_delete:"+id),
			})
		}
		return content.String(), keyboard
	})
}

// showBookings loads the bookings and renders one page.
func (b *Bot) showBookings(c *chat, messageID, page int) {
	if err := b.loadList(c.ws.Bookings.ListView); err != nil {
		return
	}
	bookings := c.ws.Bookings.Items()

	params := PaginationParams{
		ChatID:     c.chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      "Bookings",
		PagePrefix: "bookings_page:",
		Empty:      "No bookings yet. Book a room with /book.",
	}
	b.renderPaginatedList(params, len(bookings), func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for i, booking := range bookings[startIdx:endIdx] {
			n := startIdx + i + 1
			fmt.Fprintf(&content, "%d. %s <b>%s</b> · %s\n", n, statusIcon(booking.Status),
				html.EscapeString(booking.RoomName(dashboard.UnknownRoom)), dashboard.StatusLabel(string(booking.Status)))
			fmt.Fprintf(&content, "   📍 %s\n", html.EscapeString(booking.RoomAddress()))
			fmt.Fprintf(&content, "   🕘 %s - %s\n",
				booking.StartTime.In(b.location).Format(clockFormat),
				booking.EndTime.In(b.location).Format("15:04"))
			if booking.User != nil {
				fmt.Fprintf(&content, "   👤 %s\n", html.EscapeString(booking.User.Email))
			}
			content.WriteString("\n")

			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
				actionButton(fmt.Sprintf("%d. ", n), dashboard.CancelAction(booking), "booking_cancel:"+booking.ID.String()),
			})
		}
		return content.String(), keyboard
	})
}

// actionButton renders an enabled action as its verb and a disabled one as
// the status label with a no-op callback.
func actionButton(prefix string, action dashboard.Action, data string) tgbotapi.InlineKeyboardButton {
	if !action.Enabled {
		return tgbotapi.NewInlineKeyboardButtonData(prefix+action.Label, callbackNoop)
	}
	return tgbotapi.NewInlineKeyboardButtonData(prefix+action.Label, data)
}

func statusIcon(status models.BookingStatus) string {
	switch status {
	case models.BookingConfirmed:
		return "✅"
	case models.BookingCancelled:
		return "❌"
	case models.BookingCompleted:
		return "🏁"
	default:
		return "⏳"
	}
}

// sendRoomPicker offers the rooms loaded by the booking dialog.
func (b *Bot) sendRoomPicker(c *chat) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, room := range c.ws.BookingForm.Rooms() {
		action := dashboard.BookAction(room)
		if !action.Enabled {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%d)", room.Name, room.Capacity), "book_pick:"+room.ID.String()),
		))
	}
	if len(rows) == 0 {
		b.abortDialog(c)
		b.sendMessage(c.chatID, "No rooms are available for booking right now.")
		return
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", callbackAbort)))

	if _, err := b.tgService.SendWithInlineKeyboard(c.chatID, c.ws.BookingForm.Title()+":", tgbotapi.NewInlineKeyboardMarkup(rows...)); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send room picker")
	}
}

func (b *Bot) sendStatusPicker(c *chat) {
	current := c.ws.RoomForm.Draft().Status
	var row []tgbotapi.InlineKeyboardButton
	for _, status := range []models.RoomStatus{models.RoomAvailable, models.RoomUnavailable, models.RoomMaintenance} {
		label := dashboard.StatusLabel(string(status))
		if status == current {
			label = "• " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "room_status:"+string(status)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.tgService.SendWithInlineKeyboard(c.chatID, "Room status:", kb); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send status picker")
	}
}

// sendConfirmation asks for the second step of a destructive action.
func (b *Bot) sendConfirmation(c *chat, prompt, yesData string) {
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Yes", yesData),
		tgbotapi.NewInlineKeyboardButtonData("✖️ No", callbackDismiss),
	))
	if _, err := b.tgService.SendWithInlineKeyboard(c.chatID, prompt, kb); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send confirmation")
	}
}
