package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Booking struct {
	ID        uuid.UUID     `json:"id"`
	RoomID    uuid.UUID     `json:"room_id"`
	UserID    uuid.UUID     `json:"user_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	Room      *RoomRef      `json:"room,omitempty"`
	User      *UserRef      `json:"user,omitempty"`
}

// BookingInput is the body of POST /booking/.
type BookingInput struct {
	RoomID    uuid.UUID `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// BookingStatusPatch is the body of PATCH /booking/{id} used for status transitions.
type BookingStatusPatch struct {
	Status BookingStatus `json:"status"`
}

// Cancellable reports whether the booking may still be cancelled.
func (b *Booking) Cancellable() bool {
	return b.Status == BookingScheduled || b.Status == BookingConfirmed
}

// RoomName returns the denormalized room name or the supplied fallback.
func (b *Booking) RoomName(fallback string) string {
	if b.Room == nil || b.Room.Name == "" {
		return fallback
	}
	return b.Room.Name
}

// RoomAddress returns the denormalized room address or "-".
func (b *Booking) RoomAddress() string {
	if b.Room == nil || b.Room.Address == "" {
		return "-"
	}
	return b.Room.Address
}
