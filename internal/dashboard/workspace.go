package dashboard

import (
	"context"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/session"
)

// Backend is the booking API as seen by one signed-in user.
type Backend interface {
	domain.RoomAPI
	domain.BookingAPI
}

// Workspace wires one session to its lists and dialogs. Components talk to
// each other only through the workspace's version counter.
type Workspace struct {
	Session     *session.Store
	Versions    *events.Versions
	Rooms       *RoomList
	Bookings    *BookingList
	RoomForm    *RoomDialog
	BookingForm *BookingDialog

	unsubscribe func()
}

// NewWorkspace builds the dashboard for store. backend must authenticate with
// the store's token. Lists and dialogs are reset when the session ends.
func NewWorkspace(store *session.Store, backend Backend, bus *events.EventBus, deps Deps) *Workspace {
	deps = deps.withDefaults()
	deps.Versions = events.NewVersions(bus)
	if deps.OnAuthError == nil {
		deps.OnAuthError = store.Expire
	}

	ws := &Workspace{
		Session:     store,
		Versions:    deps.Versions,
		Rooms:       NewRoomList(backend, deps),
		Bookings:    NewBookingList(backend, deps),
		RoomForm:    NewRoomDialog(backend, deps),
		BookingForm: NewBookingDialog(backend, deps),
	}
	ws.unsubscribe = store.Subscribe(func(st session.State) {
		if !st.Authenticated() && !st.Loading {
			ws.reset()
		}
	})
	return ws
}

// Gate reports what the workspace should currently render.
func (w *Workspace) Gate() GateView {
	return Gate(w.Session.State())
}

// Mount loads both lists. ctx bounds the lifetime of the mounted lists.
func (w *Workspace) Mount(ctx context.Context) error {
	if w.Gate() != GateAuthenticated {
		return ErrNotMounted
	}
	if err := w.Rooms.Mount(ctx); err != nil && w.Gate() != GateAuthenticated {
		return err
	}
	return w.Bookings.Mount(ctx)
}

func (w *Workspace) reset() {
	w.Rooms.Close()
	w.Bookings.Close()
	w.RoomForm.Close()
	w.BookingForm.Close()
}

// Close tears the workspace down.
func (w *Workspace) Close() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.reset()
}
