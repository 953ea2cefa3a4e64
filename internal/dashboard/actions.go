package dashboard

import (
	"strings"

	"github.com/0xChaser/EasyBooking/internal/models"
)

// Action is a button whose availability depends on the target's status.
// A disabled action carries the status label instead of the verb.
type Action struct {
	Enabled bool
	Label   string
}

func BookAction(room models.Room) Action {
	if room.Bookable() {
		return Action{Enabled: true, Label: "Book"}
	}
	return Action{Label: StatusLabel(string(room.Status))}
}

func CancelAction(booking models.Booking) Action {
	if booking.Cancellable() {
		return Action{Enabled: true, Label: "Cancel"}
	}
	return Action{Label: StatusLabel(string(booking.Status))}
}

// StatusLabel capitalizes a status value for display.
func StatusLabel(status string) string {
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}
