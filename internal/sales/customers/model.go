package customers

import "time"

// Customer is a walk-in or repeat customer. Sales and service requests
// reference customers optionally.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalkInName is displayed for sales without a customer.
const WalkInName = "Walk-in Customer"

// DisplayName returns the customer's name or the walk-in label.
func DisplayName(c *Customer) string {
	if c == nil || c.Name == "" {
		return WalkInName
	}
	return c.Name
}
