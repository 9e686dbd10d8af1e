package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is assumed when a gateway omits the currency.
const DefaultCurrency = "BRL"

// CanonicalPurchaseEvent is the gateway-agnostic shape every adapter
// produces. Only Gateway, EventID and EventType are always set.
type CanonicalPurchaseEvent struct {
	Gateway   Gateway
	EventID   string
	EventType string

	Amount   *float64
	Currency *string

	FBC *string
	FBP *string

	Email           *string
	Phone           *string
	FirstName       *string
	LastName        *string
	DateOfBirth     *string
	City            *string
	State           *string
	Country         *string
	ZipCode         *string
	ExternalID      *string
	FacebookLoginID *string

	ProductID   *string
	ProductName *string
	Timestamp   *time.Time

	RawPayload json.RawMessage
}

// HashedConversion is a CanonicalPurchaseEvent with every PII field
// replaced by its SHA-256 digest. FBC, FBP and CountryCode stay in clear.
type HashedConversion struct {
	Gateway        Gateway    `json:"gateway"`
	GatewayEventID string     `json:"gateway_event_id"`
	EventType      string     `json:"event_type"`
	Amount         *float64   `json:"amount,omitempty"`
	Currency       string     `json:"currency"`
	PurchasedAt    *time.Time `json:"purchased_at,omitempty"`

	FBC         *string `json:"fbc,omitempty"`
	FBP         *string `json:"fbp,omitempty"`
	CountryCode *string `json:"country_code,omitempty"`

	EmailHash           *string `json:"email_hash,omitempty"`
	PhoneHash           *string `json:"phone_hash,omitempty"`
	FirstNameHash       *string `json:"first_name_hash,omitempty"`
	LastNameHash        *string `json:"last_name_hash,omitempty"`
	DateOfBirthHash     *string `json:"date_of_birth_hash,omitempty"`
	CityHash            *string `json:"city_hash,omitempty"`
	StateHash           *string `json:"state_hash,omitempty"`
	ZipCodeHash         *string `json:"zip_code_hash,omitempty"`
	ExternalIDHash      *string `json:"external_id_hash,omitempty"`
	FacebookLoginIDHash *string `json:"facebook_login_id_hash,omitempty"`
}

// Conversion is the persisted HashedConversion plus match and dispatch state.
type Conversion struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	WebhookRawID uuid.UUID `json:"webhook_raw_id"`

	HashedConversion

	MatchedClickID *uuid.UUID     `json:"matched_click_id,omitempty"`
	MatchStrategy  *MatchStrategy `json:"match_strategy,omitempty"`
	MatchedAt      *time.Time     `json:"matched_at,omitempty"`

	SentToCAPI         bool            `json:"sent_to_capi"`
	SentAt             *time.Time      `json:"sent_at,omitempty"`
	CAPIRequestPayload json.RawMessage `json:"capi_request_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsMatched reports whether the matching engine already decided this conversion.
func (c *Conversion) IsMatched() bool {
	return c.MatchStrategy != nil
}

// WebhookRaw is the untouched gateway payload, stored once per event.
type WebhookRaw struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Gateway        Gateway         `json:"gateway"`
	GatewayEventID string          `json:"gateway_event_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	ReceivedAt     time.Time       `json:"received_at"`
}
