package dashboard

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/models"
)

// RoomDraft is the form state of the room dialog. Capacity stays text until submit.
type RoomDraft struct {
	Name        string
	Address     string
	Capacity    string
	Description string
	Status      models.RoomStatus
}

// Input validates the draft and converts it to a request body.
func (d RoomDraft) Input() (models.RoomInput, error) {
	verr := &ValidationError{}
	in := models.RoomInput{
		Name:    strings.TrimSpace(d.Name),
		Address: strings.TrimSpace(d.Address),
		Status:  d.Status,
	}
	if in.Name == "" {
		verr.add("name", "Name is required")
	}
	if in.Address == "" {
		verr.add("address", "Address is required")
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(d.Capacity))
	switch {
	case strings.TrimSpace(d.Capacity) == "":
		verr.add("capacity", "Capacity is required")
	case err != nil || capacity <= 0:
		verr.add("capacity", "Capacity must be a positive whole number")
	default:
		in.Capacity = capacity
	}
	if d.Status != "" && !d.Status.Valid() {
		verr.add("status", "Unknown room status "+strconv.Quote(string(d.Status)))
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		in.Description = &desc
	}
	return in, verr.orNil()
}

// RoomDialog creates a room or edits an existing one. The draft is reset on
// every open and discarded on close.
type RoomDialog struct {
	api  domain.RoomAPI
	deps Deps

	// OnDone runs after a successful submit.
	OnDone func(room *models.Room)

	mu     sync.Mutex
	open   bool
	roomID string
	draft  RoomDraft
}

func NewRoomDialog(roomAPI domain.RoomAPI, deps Deps) *RoomDialog {
	return &RoomDialog{api: roomAPI, deps: deps.withDefaults()}
}

func (d *RoomDialog) OpenCreate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.roomID = ""
	d.draft = RoomDraft{}
}

// OpenEdit seeds the draft from room.
func (d *RoomDialog) OpenEdit(room models.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.roomID = room.ID.String()
	d.draft = RoomDraft{
		Name:        room.Name,
		Address:     room.Address,
		Capacity:    strconv.Itoa(room.Capacity),
		Description: room.DescriptionText(),
		Status:      room.Status,
	}
}

func (d *RoomDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Editing returns the id of the room being edited, or "" when creating.
func (d *RoomDialog) Editing() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roomID
}

func (d *RoomDialog) Draft() RoomDraft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Update edits the draft in place.
func (d *RoomDialog) Update(fn func(draft *RoomDraft)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	fn(&d.draft)
	return nil
}

func (d *RoomDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.roomID = ""
	d.draft = RoomDraft{}
}

// Submit sends the draft as one create or update call. On failure the dialog
// stays open with its draft.
func (d *RoomDialog) Submit(ctx context.Context) (*models.Room, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, ErrNotOpen
	}
	roomID, draft := d.roomID, d.draft
	d.mu.Unlock()

	in, err := draft.Input()
	if err != nil {
		d.deps.rejected(ctx, "room", err)
		return nil, err
	}

	var (
		room   *models.Room
		action = "created"
	)
	if roomID == "" {
		room, err = d.api.CreateRoom(ctx, in)
		if err != nil {
			d.deps.failed(ctx, err, "Failed to create room")
			return nil, err
		}
		d.deps.Notifier.Success(ctx, "Room created")
	} else {
		action = "updated"
		room, err = d.api.UpdateRoom(ctx, roomID, in)
		if err != nil {
			d.deps.failed(ctx, err, "Failed to update room")
			return nil, err
		}
		d.deps.Notifier.Success(ctx, "Room updated")
	}

	d.Close()
	d.deps.Logger.Info().Str("room_id", room.ID.String()).Str("action", action).Msg("Room saved")
	d.deps.changed(models.ResourceRooms, action, room.ID.String())
	if d.OnDone != nil {
		d.OnDone(room)
	}
	return room, nil
}
