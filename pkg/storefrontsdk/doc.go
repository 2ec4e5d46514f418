/*
Package storefrontsdk provides a client SDK for the food-ordering storefront API.

# Overview

The storefront API owns all business logic (pricing, inventory, orders). This
package is the thin HTTP layer a client uses to talk to it: it keeps the
client's default Authorization header, a cookie jar for server-side sessions,
and decodes the API's response envelope into typed values.

	client := storefrontsdk.NewSDKClient("https://api.example.com", logger)

	// Bind the bearer token used by every subsequent request
	client.SetBearerToken(token)

	// Exchange the ambient credential for an authoritative user/token pair
	result, err := client.RefreshSession(ctx)

	// Fetch the cart of the identified user
	cart, err := client.GetCartByUser(ctx, result.User.ID)

# Response Envelope

Every endpoint answers with the same wrapper:

	{"isSuccess": true, "statusCode": 200, "message": "", "data": ...}

A response whose HTTP status is not 2xx, or whose envelope reports
isSuccess=false, is returned as an *APIError:

	cart, err := client.GetCartByUser(ctx, userID)
	var apiErr *storefrontsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// credential rejected
	}

# OAuth Redirects

Social login happens in a browser: the user is sent to OAuthURL, the API
completes the provider dance and redirects back to the application's callback
path with the access token in the query string. ParseOAuthCallback extracts it:

	token, err := storefrontsdk.ParseOAuthCallback(callbackURL)

# Thread Safety

SDKClient is safe for concurrent use. The bearer token is guarded by a
read/write lock and read once per request.
*/
package storefrontsdk
