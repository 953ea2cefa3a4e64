package dashboard

import (
	"context"
	"fmt"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/models"
)

type RoomList struct {
	*ListView[models.Room]
	api  domain.RoomAPI
	deps Deps
}

func NewRoomList(roomAPI domain.RoomAPI, deps Deps) *RoomList {
	deps = deps.withDefaults()
	return &RoomList{
		ListView: NewListView(models.ResourceRooms, roomAPI.ListRooms, "Failed to load rooms", deps),
		api:      roomAPI,
		deps:     deps,
	}
}

// Find returns the loaded room with id.
func (l *RoomList) Find(id string) (models.Room, bool) {
	for _, r := range l.Items() {
		if r.ID.String() == id {
			return r, true
		}
	}
	return models.Room{}, false
}

// Delete removes room after confirmation. On success every view of rooms re-fetches.
func (l *RoomList) Delete(ctx context.Context, room models.Room) error {
	if !l.deps.Confirmer.Confirm(ctx, fmt.Sprintf("Delete room %q?", room.Name)) {
		return ErrDeclined
	}

	id := room.ID.String()
	if err := l.api.DeleteRoom(ctx, id); err != nil {
		l.deps.failed(ctx, err, "Failed to delete room")
		return err
	}

	l.deps.Logger.Info().Str("room_id", id).Msg("Room deleted")
	l.deps.Notifier.Success(ctx, "Room deleted")
	// without a version counter nobody else re-fetches this list
	if l.deps.Versions == nil {
		_ = l.Refresh()
		return nil
	}
	l.deps.changed(models.ResourceRooms, "deleted", id)
	return nil
}
