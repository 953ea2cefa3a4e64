package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/rs/zerolog"
)

// Deps carries what every dashboard component shares within one workspace.
type Deps struct {
	Versions  *events.Versions
	Notifier  domain.Notifier
	Confirmer domain.Confirmer
	Logger    *zerolog.Logger

	// OnAuthError runs when the backend rejects the session token.
	OnAuthError func(ctx context.Context)

	// Location is the zone booking dates and times are entered in.
	Location     *time.Location
	DefaultStart string
	DefaultEnd   string
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Confirmer == nil {
		d.Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.DefaultStart == "" {
		d.DefaultStart = models.DefaultStartTime
	}
	if d.DefaultEnd == "" {
		d.DefaultEnd = models.DefaultEndTime
	}
	return d
}

// rejected reports a form that failed validation before reaching the backend.
func (d Deps) rejected(ctx context.Context, form string, err error) {
	d.Logger.Warn().Err(err).Str("form", form).Msg("Form rejected")
	d.Notifier.Error(ctx, err.Error())
}

// failed logs err, notifies the user and drops the session on auth errors.
func (d Deps) failed(ctx context.Context, err error, fallback string) {
	d.Logger.Error().Err(err).Msg(fallback)
	if errors.Is(err, api.ErrUnauthorized) && d.OnAuthError != nil {
		d.OnAuthError(ctx)
	}
	d.Notifier.Error(ctx, api.DetailOr(err, fallback))
}

// changed announces a mutation of resource.
func (d Deps) changed(resource models.Resource, action, id string) {
	if d.Versions != nil {
		d.Versions.Bump(string(resource), action, id)
	}
}

// ConfirmFunc adapts a function to domain.Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm accepts every prompt. Front-ends use it once the user has
// already confirmed through their own flow.
var AlwaysConfirm domain.Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

type nopNotifier struct{}

func (nopNotifier) Success(context.Context, string) {}
func (nopNotifier) Error(context.Context, string)   {}

// NotifierFuncs adapts two functions to domain.Notifier.
type NotifierFuncs struct {
	OnSuccess func(ctx context.Context, msg string)
	OnError   func(ctx context.Context, msg string)
}

func (n NotifierFuncs) Success(ctx context.Context, msg string) {
	if n.OnSuccess != nil {
		n.OnSuccess(ctx, msg)
	}
}

func (n NotifierFuncs) Error(ctx context.Context, msg string) {
	if n.OnError != nil {
		n.OnError(ctx, msg)
	}
}
