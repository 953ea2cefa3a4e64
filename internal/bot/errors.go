package bot

import (
	"errors"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/dashboard"
)

// Backend detail codes that deserve a friendlier text.
var detailMessages = map[string]string{
	"REGISTER_USER_ALREADY_EXISTS": "An account with this email already exists.",
	"REGISTER_INVALID_PASSWORD":    "This password is not accepted. Try a longer one.",
	"LOGIN_USER_NOT_VERIFIED":      "This account is not verified yet.",
}

// getErrorMessage maps an error to the text shown to the user.
func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, api.ErrInvalidCredentials) {
		return "⚠️ Invalid email or password."
	}

	if errors.Is(err, api.ErrUnauthorized) {
		return "⚠️ Your session has expired. Please /login again."
	}

	if errors.Is(err, dashboard.ErrActionDisabled) {
		return "⚠️ This action is not available anymore."
	}

	var verr *dashboard.ValidationError
	if errors.As(err, &verr) {
		return "⚠️ " + verr.Error()
	}

	if errors.Is(err, api.ErrValidation) || errors.Is(err, api.ErrNotFound) {
		detail := api.DetailOr(err, "The request was rejected.")
		if msg, ok := detailMessages[detail]; ok {
			return "⚠️ " + msg
		}
		return "⚠️ " + detail
	}

	if errors.Is(err, api.ErrNetwork) {
		return "❌ The booking service is unreachable. Please try again later."
	}

	// Default error message
	return "❌ Something went wrong while processing your request. Please try again later."
}
