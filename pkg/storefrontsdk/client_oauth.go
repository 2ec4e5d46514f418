package storefrontsdk

import (
	"fmt"
	"net/url"
)

// OAuthURL builds the URL that starts a social login with the given provider
// (e.g. "google"). The API redirects back to redirectURI when it is done.
func (c *SDKClient) OAuthURL(provider, redirectURI string) string {
	u := c.url("/auth/" + url.PathEscape(provider))
	if redirectURI == "" {
		return u
	}

	params := url.Values{}
	params.Set("redirect_uri", redirectURI)
	return u + "?" + params.Encode()
}

// ParseOAuthCallback extracts the access token from the redirect the API sends
// the browser back to after a social login.
func ParseOAuthCallback(callbackURL string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		return "", fmt.Errorf("oauth error: %s - %s", errorCode, query.Get("error_description"))
	}

	token := query.Get("token")
	if token == "" {
		token = query.Get("accessToken")
	}
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}
