package session

// Decision is what a route guard should do with a snapshot.
type Decision int

const (
	// DecisionLoading means the status is unresolved; render nothing authoritative.
	DecisionLoading Decision = iota
	DecisionAllow
	// DecisionDeny means redirect to login or show the unauthorized view.
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "loading"
	}
}

// Guard decides access for a screen. Admin screens also require the admin role.
func Guard(s State, adminOnly bool) Decision {
	switch s.Status {
	case StatusUnknown:
		return DecisionLoading
	case StatusLoggedOut:
		return DecisionDeny
	case StatusLoggedIn:
		if adminOnly && !s.User.IsAdmin() {
			return DecisionDeny
		}
		return DecisionAllow
	}
	return DecisionLoading
}
