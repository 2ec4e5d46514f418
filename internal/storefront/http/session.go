package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// SessionResponse is a redacted view of the session. The token itself is
// never exposed, only what its claims say.
type SessionResponse struct {
	Status        string     `json:"status"`
	Authenticated *bool      `json:"authenticated"` // null while unknown
	UserID        string     `json:"userId,omitempty"`
	Role          string     `json:"role,omitempty"`
	HasToken      bool       `json:"hasToken"`
	TokenExpiry   *time.Time `json:"tokenExpiresAt,omitempty"`
	CartItems     int        `json:"cartItems"`
	CartTotal     float64    `json:"cartTotal"`
}

func SessionHandler(sv SessionView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sv.Snapshot()

		resp := SessionResponse{
			Status:    s.Status.String(),
			UserID:    s.UserID(),
			HasToken:  s.AccessToken != "",
			CartItems: s.Cart.Count(),
			CartTotal: s.Cart.Total(),
		}
		if s.User != nil {
			resp.Role = s.User.Role
		}
		if authed, known := s.IsAuthenticated(); known {
			resp.Authenticated = &authed
		}
		if s.AccessToken != "" {
			if info, err := jwtx.Inspect(s.AccessToken); err == nil && !info.ExpiresAt.IsZero() {
				exp := info.ExpiresAt
				resp.TokenExpiry = &exp
			}
		}

		slogx.FromContext(r.Context()).Debug("session inspected",
			"status", resp.Status,
			"user_id", resp.UserID,
		)
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
