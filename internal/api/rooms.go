package api

import (
	"context"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/google/uuid"
)

const PathRooms = "/api/v1/room/"

func roomPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", invalidID("room", id)
	}
	return PathRooms + id, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var page models.Page[models.Room]
	if err := c.Get(ctx, PathRooms, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) CreateRoom(ctx context.Context, in models.RoomInput) (*models.Room, error) {
	var room models.Room
	if err := c.Post(ctx, PathRooms, in, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, id string, in models.RoomInput) (*models.Room, error) {
	path, err := roomPath(id)
	if err != nil {
		return nil, err
	}
	var room models.Room
	if err := c.Patch(ctx, path, in, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	path, err := roomPath(id)
	if err != nil {
		return err
	}
	return c.Delete(ctx, path, nil)
}
