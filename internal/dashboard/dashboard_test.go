package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/api/apitest"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/models"
	"github.com/0xChaser/EasyBooking/internal/repository"
	"github.com/0xChaser/EasyBooking/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logBuffer collects log lines written from any goroutine.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *recorder) Success(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) lastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) == 0 {
		return ""
	}
	return r.errors[len(r.errors)-1]
}

var testZone = time.FixedZone("UTC+2", 2*60*60)

type env struct {
	srv    *apitest.Server
	tokens *repository.MemoryStore
	store  *session.Store
	ws     *Workspace
	notes  *recorder
	logs   *logBuffer
}

func newEnv(t *testing.T, confirmer ConfirmFunc) *env {
	t.Helper()
	ctx := context.Background()

	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "secret", "Ada", "Lovelace")
	client := api.NewClient(srv.URL, api.WithTimeout(5*time.Second))
	tokens := repository.NewMemoryStore()
	bus := events.NewEventBus()
	store := session.New(client, tokens, "token", session.Options{Bus: bus})
	require.NoError(t, store.Login(ctx, "ada@example.com", "secret"))

	if confirmer == nil {
		confirmer = func(context.Context, string) bool { return true }
	}
	notes := &recorder{}
	logs := &logBuffer{}
	logger := zerolog.New(logs)
	ws := NewWorkspace(store, client.WithTokenSource(store), bus, Deps{
		Notifier:  notes,
		Confirmer: confirmer,
		Logger:    &logger,
		Location:  testZone,
	})
	t.Cleanup(ws.Close)
	return &env{srv: srv, tokens: tokens, store: store, ws: ws, notes: notes, logs: logs}
}

func TestCreateRoomRefreshesList(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.ws.Mount(ctx))
	assert.Empty(t, e.ws.Rooms.Items())

	e.ws.RoomForm.OpenCreate()
	require.NoError(t, e.ws.RoomForm.Update(func(d *RoomDraft) {
		d.Name, d.Address, d.Capacity = "A", "X", "5"
	}))
	room, err := e.ws.RoomForm.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", room.Name)

	var named []models.Room
	for _, r := range e.ws.Rooms.Items() {
		if r.Name == "A" {
			named = append(named, r)
		}
	}
	require.Len(t, named, 1)
	assert.Equal(t, 5, named[0].Capacity)
	assert.Nil(t, named[0].Description)

	assert.False(t, e.ws.RoomForm.IsOpen())
	assert.Equal(t, RoomDraft{}, e.ws.RoomForm.Draft())
	assert.Contains(t, e.notes.successes, "Room created")
	assert.Equal(t, uint64(1), e.ws.Versions.Current(string(models.ResourceRooms)))
}

func TestRoomDialogValidation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft RoomDraft
		field string
	}{
		{name: "missing name", draft: RoomDraft{Address: "X", Capacity: "3"}, field: "name"},
		{name: "missing address", draft: RoomDraft{Name: "A", Capacity: "3"}, field: "address"},
		{name: "missing capacity", draft: RoomDraft{Name: "A", Address: "X"}, field: "capacity"},
		{name: "malformed capacity", draft: RoomDraft{Name: "A", Address: "X", Capacity: "abc"}, field: "capacity"},
		{name: "zero capacity", draft: RoomDraft{Name: "A", Address: "X", Capacity: "0"}, field: "capacity"},
		{name: "unknown status", draft: RoomDraft{Name: "A", Address: "X", Capacity: "2", Status: "closed"}, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.ws.RoomForm.OpenCreate()
			require.NoError(t, e.ws.RoomForm.Update(func(d *RoomDraft) { *d = tt.draft }))

			_, err := e.ws.RoomForm.Submit(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Field(tt.field))
			assert.True(t, e.ws.RoomForm.IsOpen())
			assert.Equal(t, err.Error(), e.notes.lastError())
		})
	}
	assert.Contains(t, e.logs.String(), `"level":"warn"`)
	assert.Contains(t, e.logs.String(), `"form":"room","message":"Form rejected"`)
	assert.Zero(t, e.srv.Calls(http.MethodPost, api.PathRooms))
}

func TestRoomDialogEdit(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	desc := "corner office"
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4, Description: &desc})
	require.NoError(t, e.ws.Mount(ctx))

	e.ws.RoomForm.OpenEdit(room)
	assert.Equal(t, room.ID.String(), e.ws.RoomForm.Editing())
	assert.Equal(t, RoomDraft{
		Name: "Blue", Address: "1 Main St", Capacity: "4", Description: "corner office", Status: models.RoomAvailable,
	}, e.ws.RoomForm.Draft())

	require.NoError(t, e.ws.RoomForm.Update(func(d *RoomDraft) {
		d.Capacity = " 6 "
		d.Description = ""
		d.Status = models.RoomMaintenance
	}))
	_, err := e.ws.RoomForm.Submit(ctx)
	require.NoError(t, err)

	saved := e.srv.Rooms()[0]
	assert.Equal(t, 6, saved.Capacity)
	assert.Nil(t, saved.Description)
	assert.Equal(t, models.RoomMaintenance, saved.Status)

	listed, ok := e.ws.Rooms.Find(room.ID.String())
	require.True(t, ok)
	assert.Equal(t, models.RoomMaintenance, listed.Status)
	assert.False(t, BookAction(listed).Enabled)
}

func TestRoomDialogServerError(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.srv.Fail(http.MethodPost, api.PathRooms, http.StatusConflict, "Room already exists")

	e.ws.RoomForm.OpenCreate()
	require.NoError(t, e.ws.RoomForm.Update(func(d *RoomDraft) {
		d.Name, d.Address, d.Capacity = "A", "X", "5"
	}))
	_, err := e.ws.RoomForm.Submit(ctx)
	require.Error(t, err)

	assert.Equal(t, "Room already exists", e.notes.lastError())
	assert.True(t, e.ws.RoomForm.IsOpen())
	assert.Equal(t, "A", e.ws.RoomForm.Draft().Name)
	assert.Zero(t, e.ws.Versions.Current(string(models.ResourceRooms)))
}

func TestRoomDialogNotOpen(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.ws.RoomForm.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, e.ws.RoomForm.Update(func(*RoomDraft) {}), ErrNotOpen)
}

func TestDeleteRoom(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	require.NoError(t, e.ws.Mount(ctx))
	require.Len(t, e.ws.Rooms.Items(), 1)

	require.NoError(t, e.ws.Rooms.Delete(ctx, room))

	assert.Empty(t, e.ws.Rooms.Items())
	assert.Contains(t, e.notes.successes, "Room deleted")
}

func TestDeleteRoomDeclined(t *testing.T) {
	var prompts []string
	e := newEnv(t, func(_ context.Context, prompt string) bool {
		prompts = append(prompts, prompt)
		return false
	})
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})

	err := e.ws.Rooms.Delete(ctx, room)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, []string{`Delete room "Blue"?`}, prompts)
	assert.Zero(t, e.srv.Calls(http.MethodDelete, api.PathRooms+room.ID.String()))
	assert.Len(t, e.srv.Rooms(), 1)
}

func TestDeleteLinkedRoomKeepsList(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	e.srv.AddBooking(models.Booking{RoomID: room.ID})
	require.NoError(t, e.ws.Mount(ctx))
	before := e.srv.Calls(http.MethodGet, api.PathRooms)

	err := e.ws.Rooms.Delete(ctx, room)
	require.Error(t, err)

	assert.Equal(t, apitest.DetailRoomLinked, e.notes.lastError())
	assert.Len(t, e.ws.Rooms.Items(), 1)
	assert.Equal(t, before, e.srv.Calls(http.MethodGet, api.PathRooms), "failed mutation must not re-fetch")
	assert.True(t, e.store.State().Authenticated(), "conflict keeps the session")
}

func TestCancelBooking(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	booking := e.srv.AddBooking(models.Booking{RoomID: room.ID, Status: models.BookingConfirmed})
	require.NoError(t, e.ws.Mount(ctx))

	require.NoError(t, e.ws.Bookings.Cancel(ctx, booking))

	listed, ok := e.ws.Bookings.Find(booking.ID.String())
	require.True(t, ok, "cancel keeps the booking")
	assert.Equal(t, models.BookingCancelled, listed.Status)
	assert.Equal(t, "Blue", listed.RoomName(UnknownRoom))
	assert.Contains(t, e.notes.successes, "Booking cancelled")
}

func TestCancelDisabledIsNotDispatched(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	for _, status := range []models.BookingStatus{models.BookingCancelled, models.BookingCompleted} {
		booking := e.srv.AddBooking(models.Booking{Status: status})
		err := e.ws.Bookings.Cancel(ctx, booking)
		assert.ErrorIs(t, err, ErrActionDisabled)
		assert.Zero(t, e.srv.Calls(http.MethodPatch, api.PathBookings+booking.ID.String()))
	}
}

func TestActions(t *testing.T) {
	bookingCases := map[models.BookingStatus]Action{
		models.BookingScheduled: {Enabled: true, Label: "Cancel"},
		models.BookingConfirmed: {Enabled: true, Label: "Cancel"},
		models.BookingCancelled: {Enabled: false, Label: "Cancelled"},
		models.BookingCompleted: {Enabled: false, Label: "Completed"},
	}
	for status, want := range bookingCases {
		assert.Equal(t, want, CancelAction(models.Booking{Status: status}), status)
	}

	roomCases := map[models.RoomStatus]Action{
		models.RoomAvailable:   {Enabled: true, Label: "Book"},
		models.RoomUnavailable: {Enabled: false, Label: "Unavailable"},
		models.RoomMaintenance: {Enabled: false, Label: "Maintenance"},
		"":                     {Enabled: false, Label: "Unknown"},
	}
	for status, want := range roomCases {
		assert.Equal(t, want, BookAction(models.Room{Status: status}), status)
	}
}

func TestBookingDialogRoomFetch(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})

	before := e.srv.Calls(http.MethodGet, api.PathRooms)
	require.NoError(t, e.ws.BookingForm.Open(ctx, room.ID.String(), room.Name))
	assert.Equal(t, before, e.srv.Calls(http.MethodGet, api.PathRooms), "preset room skips the fetch")
	assert.Equal(t, "Book: Blue", e.ws.BookingForm.Title())
	e.ws.BookingForm.Close()

	require.NoError(t, e.ws.BookingForm.Open(ctx, "", ""))
	assert.Equal(t, before+1, e.srv.Calls(http.MethodGet, api.PathRooms))
	require.Len(t, e.ws.BookingForm.Rooms(), 1)
	require.NoError(t, e.ws.BookingForm.SelectRoom(room.ID.String()))
	assert.Equal(t, room.ID.String(), e.ws.BookingForm.Draft().RoomID)
	assert.Error(t, e.ws.BookingForm.SelectRoom("nope"))

	require.NoError(t, e.ws.BookingForm.Open(ctx, "", ""))
	assert.Equal(t, before+2, e.srv.Calls(http.MethodGet, api.PathRooms), "one fetch per open")
}

func TestBookingDialogComposesLocalInstants(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	require.NoError(t, e.ws.Mount(ctx))

	require.NoError(t, e.ws.BookingForm.Open(ctx, room.ID.String(), room.Name))
	draft := e.ws.BookingForm.Draft()
	assert.Equal(t, "09:00", draft.StartTime)
	assert.Equal(t, "10:00", draft.EndTime)

	require.NoError(t, e.ws.BookingForm.Update(func(d *BookingDraft) { d.Date = "2024-06-01" }))
	booking, err := e.ws.BookingForm.Submit(ctx)
	require.NoError(t, err)

	wantStart := time.Date(2024, 6, 1, 9, 0, 0, 0, testZone)
	wantEnd := time.Date(2024, 6, 1, 10, 0, 0, 0, testZone)
	assert.True(t, booking.StartTime.Equal(wantStart), "start %s", booking.StartTime)
	assert.True(t, booking.EndTime.Equal(wantEnd), "end %s", booking.EndTime)

	stored := e.srv.Bookings()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].StartTime.Equal(wantStart))

	assert.False(t, e.ws.BookingForm.IsOpen())
	assert.Len(t, e.ws.Bookings.Items(), 1, "bookings list re-fetched after create")
	assert.Contains(t, e.notes.successes, "Booking created")
}

func TestBookingDialogValidation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})

	require.NoError(t, e.ws.BookingForm.Open(ctx, room.ID.String(), room.Name))
	_, err := e.ws.BookingForm.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, "Please select a date", e.notes.lastError())

	require.NoError(t, e.ws.BookingForm.Open(ctx, "", ""))
	require.NoError(t, e.ws.BookingForm.Update(func(d *BookingDraft) { d.Date = "2024-06-01" }))
	_, err = e.ws.BookingForm.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, "Please select a room", e.notes.lastError())

	require.NoError(t, e.ws.BookingForm.Update(func(d *BookingDraft) {
		d.RoomID = room.ID.String()
		d.StartTime = "9am"
	}))
	_, err = e.ws.BookingForm.Submit(ctx)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("start_time"))

	assert.Equal(t, 3, strings.Count(e.logs.String(), `"form":"booking","message":"Form rejected"`))
	assert.Zero(t, e.srv.Calls(http.MethodPost, api.PathBookings))
}

func TestBookingDialogLeavesOrderingToServer(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	room := e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})

	require.NoError(t, e.ws.BookingForm.Open(ctx, room.ID.String(), room.Name))
	require.NoError(t, e.ws.BookingForm.Update(func(d *BookingDraft) {
		d.Date = "2024-06-01"
		d.StartTime, d.EndTime = "10:00", "09:00"
	}))
	e.srv.Fail(http.MethodPost, api.PathBookings, http.StatusUnprocessableEntity, "end_time must be after start_time")

	_, err := e.ws.BookingForm.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, e.srv.Calls(http.MethodPost, api.PathBookings))
	assert.Equal(t, "end_time must be after start_time", e.notes.lastError())
	assert.True(t, e.ws.BookingForm.IsOpen())
}

func TestListLoadFailureKeepsItems(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	require.NoError(t, e.ws.Mount(ctx))

	e.srv.FailRaw(http.MethodGet, api.PathRooms, http.StatusInternalServerError, "Internal Server Error")
	err := e.ws.Rooms.Refresh()
	require.Error(t, err)

	assert.Len(t, e.ws.Rooms.Items(), 1)
	assert.Equal(t, PhaseLoaded, e.ws.Rooms.State())
	assert.Equal(t, "Failed to load rooms", e.notes.lastError())
}

func TestListFirstLoadFailure(t *testing.T) {
	e := newEnv(t, nil)
	e.srv.FailRaw(http.MethodGet, api.PathBookings, http.StatusBadGateway, "")

	require.NoError(t, e.ws.Rooms.Mount(context.Background()))
	assert.Error(t, e.ws.Bookings.Mount(context.Background()))

	assert.Empty(t, e.ws.Bookings.Items())
	assert.Equal(t, PhaseLoaded, e.ws.Bookings.State())
	assert.Equal(t, "Failed to load bookings", e.notes.lastError())
}

func TestListDiscardsResponseAfterClose(t *testing.T) {
	e := newEnv(t, nil)
	e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	release := e.srv.Block(http.MethodGet, api.PathRooms)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.ws.Rooms.Mount(context.Background())
	}()
	require.Eventually(t, func() bool {
		return e.srv.Calls(http.MethodGet, api.PathRooms) == 1
	}, 2*time.Second, 5*time.Millisecond)

	e.ws.Rooms.Close()
	release()
	<-done

	assert.Empty(t, e.ws.Rooms.Items())
	assert.Equal(t, PhaseIdle, e.ws.Rooms.State())
	assert.Empty(t, e.notes.errors, "cancelled fetch is not reported")
}

func TestRefreshBeforeMount(t *testing.T) {
	e := newEnv(t, nil)
	assert.ErrorIs(t, e.ws.Rooms.Refresh(), ErrNotMounted)
}

func TestAuthErrorEndsSession(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.ws.Mount(ctx))
	require.Equal(t, GateAuthenticated, e.ws.Gate())

	e.srv.Fail(http.MethodGet, api.PathRooms, http.StatusUnauthorized, "Unauthorized")
	e.srv.AddRoom(models.Room{Name: "Blue", Address: "1 Main St", Capacity: 4})
	e.ws.RoomForm.OpenCreate()

	err := e.ws.Rooms.Refresh()
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	assert.Equal(t, GateLogin, e.ws.Gate())
	tok, _ := e.tokens.GetToken(ctx, "token")
	assert.Empty(t, tok)
	assert.False(t, e.ws.Rooms.Mounted())
	assert.False(t, e.ws.RoomForm.IsOpen())
	assert.ErrorIs(t, e.ws.Mount(ctx), ErrNotMounted)
}

func TestGate(t *testing.T) {
	assert.Equal(t, GateLoading, Gate(session.State{Loading: true}))
	assert.Equal(t, GateLogin, Gate(session.State{}))
	assert.Equal(t, GateAuthenticated, Gate(session.State{User: &models.User{}}))
}

func TestNotifierFuncs(t *testing.T) {
	var got []string
	n := NotifierFuncs{OnError: func(_ context.Context, msg string) { got = append(got, msg) }}
	n.Success(context.Background(), "ignored")
	n.Error(context.Background(), "shown")
	assert.Equal(t, []string{"shown"}, got)
}
