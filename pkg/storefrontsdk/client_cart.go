package storefrontsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetCartByUser retrieves the current cart of the given user.
// Only an envelope with isSuccess=true and statusCode=200 counts as success.
func (c *SDKClient) GetCartByUser(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, fmt.Errorf("storefrontsdk: user id is required")
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/carts/user/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope[*Cart](resp)
	if err != nil {
		return nil, err
	}

	if env.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: env.StatusCode, Message: "unexpected cart status"}
	}
	if env.Data == nil {
		return nil, ErrEmptyCart
	}

	return env.Data, nil
}
