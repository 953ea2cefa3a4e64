package api

import (
	"context"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/google/uuid"
)

const PathBookings = "/api/v1/booking/"

func bookingPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", invalidID("booking", id)
	}
	return PathBookings + id, nil
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var page models.Page[models.Booking]
	if err := c.Get(ctx, PathBookings, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CreateBooking books a room for the authenticated user. The server assigns
// the owner and the initial status.
func (c *Client) CreateBooking(ctx context.Context, in models.BookingInput) (*models.Booking, error) {
	var booking models.Booking
	if err := c.Post(ctx, PathBookings, in, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	path, err := bookingPath(id)
	if err != nil {
		return nil, err
	}
	var booking models.Booking
	if err := c.Patch(ctx, path, models.BookingStatusPatch{Status: status}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelBooking moves a booking to the cancelled status. The record is kept.
func (c *Client) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	return c.UpdateBookingStatus(ctx, id, models.BookingCancelled)
}

// DeleteBooking hard-deletes a booking.
//
// Deprecated: use CancelBooking, which keeps the booking history.
func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	path, err := bookingPath(id)
	if err != nil {
		return err
	}
	return c.Delete(ctx, path, nil)
}
