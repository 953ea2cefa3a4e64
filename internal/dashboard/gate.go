package dashboard

import "github.com/0xChaser/EasyBooking/internal/session"

type GateView int

const (
	GateLoading GateView = iota
	GateAuthenticated
	GateLogin
)

func (g GateView) String() string {
	switch g {
	case GateAuthenticated:
		return "authenticated"
	case GateLogin:
		return "login"
	default:
		return "loading"
	}
}

// Gate decides what a protected view renders for a session state.
func Gate(st session.State) GateView {
	switch {
	case st.Loading:
		return GateLoading
	case st.Authenticated():
		return GateAuthenticated
	default:
		return GateLogin
	}
}
