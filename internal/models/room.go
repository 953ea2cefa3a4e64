package models

import "github.com/google/uuid"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomUnavailable RoomStatus = "unavailable"
	RoomMaintenance RoomStatus = "maintenance"
)

type Room struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Capacity    int        `json:"capacity"`
	Description *string    `json:"description"`
	Status      RoomStatus `json:"status"`
}

// RoomRef is the denormalized room attached to a booking.
type RoomRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
}

// RoomInput is the body of POST /room/ and PATCH /room/{id}.
type RoomInput struct {
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Capacity    int        `json:"capacity"`
	Description *string    `json:"description"`
	Status      RoomStatus `json:"status,omitempty"`
}

// DescriptionText returns the description or an empty string.
func (r *Room) DescriptionText() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// Bookable reports whether new bookings may target the room.
// A room without a status is not bookable.
func (r *Room) Bookable() bool {
	return r.Status == RoomAvailable
}

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomUnavailable, RoomMaintenance:
		return true
	}
	return false
}
