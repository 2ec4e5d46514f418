package session

import (
	"slices"

	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
)

// Status is the tri-state authentication status. It is StatusUnknown only
// while bootstrap has not resolved it.
type Status int

const (
	StatusUnknown Status = iota
	StatusLoggedOut
	StatusLoggedIn
)

func (s Status) String() string {
	switch s {
	case StatusLoggedOut:
		return "logged_out"
	case StatusLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Known reports whether the status is a definite answer.
func (s Status) Known() bool { return s != StatusUnknown }

// StatusLabels lists every status label, for metrics registration.
func StatusLabels() []string {
	return []string{StatusUnknown.String(), StatusLoggedOut.String(), StatusLoggedIn.String()}
}

// State is a snapshot of the session visible to consumers.
type State struct {
	User        *storefrontsdk.User
	AccessToken string
	Status      Status
	Cart        *storefrontsdk.Cart
}

// UserID returns the current user's id, or "" without a user.
func (s State) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// IsAuthenticated returns the boolean view of Status; known is false while
// the status is still unresolved.
func (s State) IsAuthenticated() (authenticated, known bool) {
	return s.Status == StatusLoggedIn, s.Status.Known()
}

func (s State) same(o State) bool {
	return s.User == o.User &&
		s.AccessToken == o.AccessToken &&
		s.Status == o.Status &&
		s.Cart == o.Cart
}

// clone deep-copies the user and cart so consumers can't mutate shared state.
func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Cart != nil {
		c := *s.Cart
		c.Items = slices.Clone(s.Cart.Items)
		out.Cart = &c
	}
	return out
}
