package dashboard

import (
	"context"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/models"
)

// UnknownRoom is shown for bookings whose room is missing from the response.
const UnknownRoom = "Unknown room"

type BookingList struct {
	*ListView[models.Booking]
	api  domain.BookingAPI
	deps Deps
}

func NewBookingList(bookingAPI domain.BookingAPI, deps Deps) *BookingList {
	deps = deps.withDefaults()
	return &BookingList{
		ListView: NewListView(models.ResourceBookings, bookingAPI.ListBookings, "Failed to load bookings", deps),
		api:      bookingAPI,
		deps:     deps,
	}
}

func (l *BookingList) Find(id string) (models.Booking, bool) {
	for _, b := range l.Items() {
		if b.ID.String() == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// Cancel moves booking to the cancelled status after confirmation. Bookings
// that are already cancelled or completed are rejected without a request.
func (l *BookingList) Cancel(ctx context.Context, booking models.Booking) error {
	if !CancelAction(booking).Enabled {
		return ErrActionDisabled
	}
	if !l.deps.Confirmer.Confirm(ctx, "Cancel this booking?") {
		return ErrDeclined
	}

	id := booking.ID.String()
	if _, err := l.api.CancelBooking(ctx, id); err != nil {
		l.deps.failed(ctx, err, "Failed to cancel booking")
		return err
	}

	l.deps.Logger.Info().Str("booking_id", id).Msg("Booking cancelled")
	l.deps.Notifier.Success(ctx, "Booking cancelled")
	if l.deps.Versions == nil {
		_ = l.Refresh()
		return nil
	}
	l.deps.changed(models.ResourceBookings, "cancelled", id)
	return nil
}
