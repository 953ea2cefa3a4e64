package models

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultCookieName is the name of the cookie holding the bearer token.
	DefaultCookieName = "token"

	// DefaultSessionTTLDays lifetime of the token cookie
	DefaultSessionTTLDays = 7

	// DefaultAPITimeout HTTP timeout in seconds
	DefaultAPITimeout = 10

	// DefaultStartTime and DefaultEndTime seed the booking form.
	DefaultStartTime = "09:00"
	DefaultEndTime   = "10:00"

	// DateLayout is the layout of the booking date field.
	DateLayout = "2006-01-02"

	// ClockLayout is the layout of the time-of-day fields.
	ClockLayout = "15:04"

	// DefaultPaginationSize rooms or bookings per bot message
	DefaultPaginationSize = 8

	// RateLimitMessages bot messages per window
	RateLimitMessages = 20

	// RateLimitWindow window in seconds
	RateLimitWindow = 60
)
