package storefrontsdk

// Envelope is the wrapper around every storefront API response.
type Envelope[T any] struct {
	IsSuccess  bool   `json:"isSuccess"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
	Data       T      `json:"data"`
}

// ============================================================================
// Session Types
// ============================================================================

// User is the identity record returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the user may use the back-office screens.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// sessionPayload is the data object of refresh and login responses.
type sessionPayload struct {
	User        *User  `json:"data"`
	AccessToken string `json:"accessToken,omitempty"`
}

// SessionResult is an authoritative user/token pair from the API.
type SessionResult struct {
	User *User

	// AccessToken is empty when the server kept the existing credential
	AccessToken string
}

// LoginRequest carries password credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ============================================================================
// Cart Types
// ============================================================================

// Cart is a user's pending order.
type Cart struct {
	ID     string     `json:"id,omitempty"`
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

// CartItem is one menu line in a cart.
type CartItem struct {
	MenuID   string  `json:"menuId"`
	Name     string  `json:"name,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Total returns the sum of quantity * unit price over all lines.
func (c *Cart) Total() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.Price
	}
	return total
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
