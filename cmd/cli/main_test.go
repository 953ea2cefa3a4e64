package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xChaser/EasyBooking/internal/api/apitest"
	"github.com/0xChaser/EasyBooking/internal/config"
	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv  *apitest.Server
	cfg  *config.Config
	user models.User

	// stderr of the last exec
	stderr string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	user := srv.AddUser("ada@example.com", "secret", "Ada", "Lovelace")

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.API.BaseURL = srv.URL
	cfg.API.TimeoutSeconds = 5
	cfg.Session.CookieName = "token"
	cfg.Session.TTLDays = 7
	cfg.Session.StorePath = filepath.Join(dir, "cookies.db")
	cfg.Dashboard.Timezone = "UTC"
	cfg.Dashboard.DefaultStartTime = "09:00"
	cfg.Dashboard.DefaultEndTime = "10:00"
	cfg.Exports.Path = filepath.Join(dir, "exports")
	require.NoError(t, cfg.Validate())

	return &fixture{srv: srv, cfg: cfg, user: user}
}

// exec runs one command the way a fresh process would, sharing the cookie file.
func (f *fixture) exec(t *testing.T, opts options, stdin string) (string, error) {
	t.Helper()
	logger := zerolog.Nop()
	var out, errOut bytes.Buffer
	c, err := newCLI(f.cfg, opts, &logger, strings.NewReader(stdin), &out, &errOut)
	require.NoError(t, err)
	defer c.close()
	err = c.dispatch(context.Background())
	f.stderr = errOut.String()
	return out.String(), err
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.exec(t, options{cmd: "login", email: "ada@example.com", password: "secret"}, "")
	require.NoError(t, err)
}

func TestLoginPersistsAcrossRuns(t *testing.T) {
	f := newFixture(t)

	out, err := f.exec(t, options{cmd: "login", email: "ada@example.com", password: "secret"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")

	out, err = f.exec(t, options{cmd: "me"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")

	_, err = f.exec(t, options{cmd: "logout"}, "")
	require.NoError(t, err)

	out, err = f.exec(t, options{cmd: "me"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec(t, options{cmd: "login", email: "ada@example.com", password: "wrong"}, "")
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", err.Error())

	_, err = f.exec(t, options{cmd: "login"}, "")
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	out, err := f.exec(t, options{cmd: "register", email: "bob@example.com", password: "pw", firstName: "Bob"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created")

	_, err = f.exec(t, options{cmd: "register", email: "bob@example.com", password: "pw"}, "")
	assert.Error(t, err)
}

func TestCommandsRequireLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec(t, options{cmd: "rooms"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Zero(t, f.srv.Calls("GET", "/api/v1/room/"))
}

func TestCreateAndListRooms(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out, err := f.exec(t, options{cmd: "room-create", name: "A", address: "X", capacity: "5"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Room created")
	assert.Empty(t, f.stderr)

	rooms := f.srv.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 5, rooms[0].Capacity)

	out, err = f.exec(t, options{cmd: "rooms"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, rooms[0].ID.String())
	assert.Contains(t, out, "A")

	_, err = f.exec(t, options{cmd: "room-create", name: "B", address: "X", capacity: "many"}, "")
	require.Error(t, err)
	assert.Equal(t, "Error: "+err.Error()+"\n", f.stderr)
	assert.Len(t, f.srv.Rooms(), 1)
}

func TestEditRoomKeepsUnsetFields(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	room := f.srv.AddRoom(models.Room{Name: "Blue", Address: "Floor 1", Capacity: 4})

	_, err := f.exec(t, options{
		cmd:    "room-edit",
		id:     room.ID.String(),
		status: "maintenance",
		name:   "ignored",
		set:    map[string]bool{"id": true, "status": true},
	}, "")
	require.NoError(t, err)

	rooms := f.srv.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "Blue", rooms[0].Name)
	assert.Equal(t, models.RoomMaintenance, rooms[0].Status)
}

func TestDeleteRoomAsks(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	room := f.srv.AddRoom(models.Room{Name: "Blue", Address: "Floor 1", Capacity: 4})

	out, err := f.exec(t, options{cmd: "room-delete", id: room.ID.String()}, "n\n")
	require.NoError(t, err)
	assert.Contains(t, out, `Delete room "Blue"? [y/N]`)
	assert.Len(t, f.srv.Rooms(), 1)
	assert.Zero(t, f.srv.Calls("DELETE", "/api/v1/room/"+room.ID.String()))

	_, err = f.exec(t, options{cmd: "room-delete", id: room.ID.String()}, "y\n")
	require.NoError(t, err)
	assert.Empty(t, f.srv.Rooms())
}

func TestBookAndCancel(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	room := f.srv.AddRoom(models.Room{Name: "Blue", Address: "Floor 1", Capacity: 4})

	out, err := f.exec(t, options{cmd: "book", roomID: room.ID.String(), date: "2024-06-01"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Booking created")

	bookings := f.srv.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), bookings[0].StartTime.UTC())
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), bookings[0].EndTime.UTC())

	out, err = f.exec(t, options{cmd: "bookings"}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Blue")
	assert.Contains(t, out, "2024-06-01 09:00")

	id := bookings[0].ID.String()
	_, err = f.exec(t, options{cmd: "cancel", id: id, yes: true}, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, f.srv.Bookings()[0].Status)

	_, err = f.exec(t, options{cmd: "cancel", id: id, yes: true}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestBookWithoutDateIsNotSent(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	room := f.srv.AddRoom(models.Room{Name: "Blue", Address: "Floor 1", Capacity: 4})

	_, err := f.exec(t, options{cmd: "book", roomID: room.ID.String()}, "")
	assert.Error(t, err)
	assert.Zero(t, f.srv.Calls("POST", "/api/v1/booking/"))
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	room := f.srv.AddRoom(models.Room{Name: "Blue", Address: "Floor 1", Capacity: 4})
	f.srv.AddBooking(models.Booking{
		RoomID:    room.ID,
		UserID:    f.user.ID,
		StartTime: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	})

	out, err := f.exec(t, options{cmd: "export"}, "")
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(path, ".xlsx"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.exec(t, options{cmd: "fly"}, "")
	assert.EqualError(t, err, `unknown command "fly"`)
}
