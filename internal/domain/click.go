package domain

import (
	"time"

	"github.com/google/uuid"
)

// Click is an ad click or landing hit. Immutable once written.
type Click struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	FBCLID      *string   `json:"fbclid,omitempty"`
	FBC         *string   `json:"fbc,omitempty"`
	FBP         *string   `json:"fbp,omitempty"`
	UTMSource   *string   `json:"utm_source,omitempty"`
	UTMMedium   *string   `json:"utm_medium,omitempty"`
	UTMCampaign *string   `json:"utm_campaign,omitempty"`
	IP          *string   `json:"ip,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	DeviceType  *string   `json:"device_type,omitempty"`
	Browser     *string   `json:"browser,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
