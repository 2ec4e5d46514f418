package storefrontsdk

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every API call made with the default HTTP client.
const DefaultTimeout = 10 * time.Second

// SDKClient is a client for the storefront API.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Limiter throttles outbound calls when set. Calls wait for a token and
	// fail with the context error if the context ends first.
	Limiter *rate.Limiter

	mu          sync.RWMutex
	bearerToken string
}

// NewSDKClient creates a client with a cookie jar and a logging transport.
func NewSDKClient(baseURL string, logger *slog.Logger) *SDKClient {
	// cookiejar.New only fails on a broken PublicSuffixList, nil is safe
	jar, _ := cookiejar.New(nil)

	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Jar:       jar,
			Transport: slogx.NewTransport(nil, logger),
		},
	}
}

// NewLimiter builds a limiter allowing perSecond calls with the given burst.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// SetBearerToken sets the default Authorization header for all requests.
func (c *SDKClient) SetBearerToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearerToken = token
}

// ClearBearerToken removes the default Authorization header.
func (c *SDKClient) ClearBearerToken() {
	c.SetBearerToken("")
}

// BearerToken returns the token currently attached to requests, if any.
func (c *SDKClient) BearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearerToken
}
