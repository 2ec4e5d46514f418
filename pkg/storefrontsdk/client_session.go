package storefrontsdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// RefreshSession exchanges the ambient credential (session cookie and/or the
// default bearer token) for an authoritative user and, optionally, a new token.
func (c *SDKClient) RefreshSession(ctx context.Context) (*SessionResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", nil)
	if err != nil {
		return nil, err
	}

	return decodeSession(resp)
}

// Login authenticates with email and password.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*SessionResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", req)
	if err != nil {
		return nil, err
	}

	return decodeSession(resp)
}

// Logout ends the server-side session. The caller still owns clearing any
// locally persisted token.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}

	_, err = decodeEnvelope[json.RawMessage](resp)
	return err
}

func decodeSession(resp *http.Response) (*SessionResult, error) {
	env, err := decodeEnvelope[sessionPayload](resp)
	if err != nil {
		return nil, err
	}

	if env.Data.User == nil {
		return nil, ErrMissingUser
	}

	return &SessionResult{
		User:        env.Data.User,
		AccessToken: env.Data.AccessToken,
	}, nil
}
