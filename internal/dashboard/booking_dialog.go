package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/google/uuid"
)

// BookingDialogAPI is what the booking dialog calls.
type BookingDialogAPI interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	CreateBooking(ctx context.Context, in models.BookingInput) (*models.Booking, error)
}

// BookingDraft is the form state: a date and two times of day.
type BookingDraft struct {
	RoomID    string
	Date      string
	StartTime string
	EndTime   string
}

// Input validates the draft and composes the two instants in loc. The order
// of start and end is left to the server.
func (d BookingDraft) Input(loc *time.Location) (models.BookingInput, error) {
	verr := &ValidationError{}
	var in models.BookingInput

	date := strings.TrimSpace(d.Date)
	if date == "" {
		verr.add("date", "Please select a date")
	}
	roomID := strings.TrimSpace(d.RoomID)
	if roomID == "" {
		verr.add("room", "Please select a room")
	} else if id, err := uuid.Parse(roomID); err != nil {
		verr.add("room", "Unknown room")
	} else {
		in.RoomID = id
	}
	if len(verr.Fields) > 0 {
		return in, verr
	}

	start, err := composeInstant(date, d.StartTime, loc)
	if err != nil {
		verr.add("start_time", err.Error())
	}
	end, err := composeInstant(date, d.EndTime, loc)
	if err != nil {
		verr.add("end_time", err.Error())
	}
	if len(verr.Fields) > 0 {
		return in, verr
	}

	in.StartTime = start.UTC()
	in.EndTime = end.UTC()
	return in, nil
}

func composeInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	clock = strings.TrimSpace(clock)
	if _, err := time.Parse(models.ClockLayout, clock); err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, date+" "+clock, loc)
}

// BookingDialog creates one booking. Opened for a known room it skips the
// room selection; otherwise it loads the rooms once per open.
type BookingDialog struct {
	api  BookingDialogAPI
	deps Deps

	// OnDone runs after a successful submit.
	OnDone func(booking *models.Booking)

	mu       sync.Mutex
	open     bool
	preset   bool
	roomName string
	rooms    []models.Room
	draft    BookingDraft
}

func NewBookingDialog(bookingAPI BookingDialogAPI, deps Deps) *BookingDialog {
	return &BookingDialog{api: bookingAPI, deps: deps.withDefaults()}
}

// Open resets the form. With an empty roomID the room collection is fetched.
// A failed fetch leaves the dialog open with no rooms to choose from.
func (d *BookingDialog) Open(ctx context.Context, roomID, roomName string) error {
	d.mu.Lock()
	d.open = true
	d.preset = roomID != ""
	d.roomName = roomName
	d.rooms = nil
	d.draft = BookingDraft{
		RoomID:    roomID,
		StartTime: d.deps.DefaultStart,
		EndTime:   d.deps.DefaultEnd,
	}
	d.mu.Unlock()

	if roomID != "" {
		return nil
	}

	rooms, err := d.api.ListRooms(ctx)
	if err != nil {
		d.deps.Logger.Error().Err(err).Msg("Failed to load rooms for booking")
		return err
	}

	d.mu.Lock()
	if d.open && !d.preset {
		d.rooms = rooms
	}
	d.mu.Unlock()
	return nil
}

func (d *BookingDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Rooms returns the rooms offered for selection.
func (d *BookingDialog) Rooms() []models.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Room(nil), d.rooms...)
}

// Title describes the dialog target.
func (d *BookingDialog) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.roomName != "" {
		return "Book: " + d.roomName
	}
	return "Select a room and a date"
}

func (d *BookingDialog) Draft() BookingDraft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Update edits the draft in place. Selecting a room by name is done by the caller.
func (d *BookingDialog) Update(fn func(draft *BookingDraft)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	fn(&d.draft)
	return nil
}

// SelectRoom picks one of the offered rooms.
func (d *BookingDialog) SelectRoom(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	for _, r := range d.rooms {
		if r.ID.String() == id {
			d.draft.RoomID = id
			d.roomName = r.Name
			return nil
		}
	}
	return &ValidationError{Fields: []FieldError{{Field: "room", Message: "Unknown room"}}}
}

func (d *BookingDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.preset = false
	d.roomName = ""
	d.rooms = nil
	d.draft = BookingDraft{}
}

func (d *BookingDialog) Submit(ctx context.Context) (*models.Booking, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, ErrNotOpen
	}
	draft := d.draft
	d.mu.Unlock()

	in, err := draft.Input(d.deps.Location)
	if err != nil {
		d.deps.rejected(ctx, "booking", err)
		return nil, err
	}

	booking, err := d.api.CreateBooking(ctx, in)
	if err != nil {
		d.deps.failed(ctx, err, "Failed to create booking")
		return nil, err
	}

	d.Close()
	d.deps.Logger.Info().Str("booking_id", booking.ID.String()).Str("room_id", in.RoomID.String()).Msg("Booking created")
	d.deps.Notifier.Success(ctx, "Booking created")
	d.deps.changed(models.ResourceBookings, "created", booking.ID.String())
	if d.OnDone != nil {
		d.OnDone(booking)
	}
	return booking, nil
}
