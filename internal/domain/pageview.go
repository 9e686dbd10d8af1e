package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pageview is one landing page load. Immutable once written.
type Pageview struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	URL         string    `json:"url"`
	Referrer    *string   `json:"referrer,omitempty"`
	Title       *string   `json:"title,omitempty"`
	UTMSource   *string   `json:"utm_source,omitempty"`
	UTMMedium   *string   `json:"utm_medium,omitempty"`
	UTMCampaign *string   `json:"utm_campaign,omitempty"`
	UTMContent  *string   `json:"utm_content,omitempty"`
	UTMTerm     *string   `json:"utm_term,omitempty"`
	FBCLID      *string   `json:"fbclid,omitempty"`
	FBC         *string   `json:"fbc,omitempty"`
	FBP         *string   `json:"fbp,omitempty"`
	IP          *string   `json:"ip,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	DeviceType  *string   `json:"device_type,omitempty"`
	Browser     *string   `json:"browser,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartItem is one line of a checkout cart.
type CartItem struct {
	ID       string   `json:"id,omitempty" validate:"omitempty,max=255"`
	Name     string   `json:"name,omitempty" validate:"omitempty,max=512"`
	Quantity int      `json:"quantity,omitempty" validate:"gte=0"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// Checkout is an InitiateCheckout hit from the landing page.
type Checkout struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	CartValue   *float64   `json:"cart_value,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	CartItems   []CartItem `json:"cart_items"`
	UTMSource   *string    `json:"utm_source,omitempty"`
	UTMMedium   *string    `json:"utm_medium,omitempty"`
	UTMCampaign *string    `json:"utm_campaign,omitempty"`
	FBCLID      *string    `json:"fbclid,omitempty"`
	FBC         *string    `json:"fbc,omitempty"`
	FBP         *string    `json:"fbp,omitempty"`
	IP          *string    `json:"ip,omitempty"`
	UserAgent   *string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
