package capi

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

const (
	EventNamePurchase   = "Purchase"
	ActionSourceWebsite = "website"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EventPayload is the request body for POST /{pixel_id}/events. The access
// token travels as a query parameter, never in the body.
type EventPayload struct {
	Data []Event `json:"data" validate:"required,min=1,dive"`
}

// Event is one entry of the CAPI data array.
type Event struct {
	EventName     string      `json:"event_name" validate:"required"`
	EventTime     int64       `json:"event_time" validate:"gt=0"`
	EventID       string      `json:"event_id" validate:"required"`
	EventSourceID string      `json:"event_source_id" validate:"required"`
	ActionSource  string      `json:"action_source" validate:"oneof=website app phone_call chat email physical_store system_generated other"`
	UserData      *UserData   `json:"user_data" validate:"required"`
	CustomData    *CustomData `json:"custom_data,omitempty"`
}

// UserData holds the customer information parameters. Everything except
// fbc, fbp and country is a SHA-256 hex digest.
type UserData struct {
	Email           *string  `json:"em,omitempty" validate:"omitempty,len=64,hexadecimal"`
	Phone           *string  `json:"ph,omitempty" validate:"omitempty,len=64,hexadecimal"`
	FirstName       *string  `json:"fn,omitempty" validate:"omitempty,len=64,hexadecimal"`
	LastName        *string  `json:"ln,omitempty" validate:"omitempty,len=64,hexadecimal"`
	City            *string  `json:"ct,omitempty" validate:"omitempty,len=64,hexadecimal"`
	State           *string  `json:"st,omitempty" validate:"omitempty,len=64,hexadecimal"`
	ZipCode         *string  `json:"zp,omitempty" validate:"omitempty,len=64,hexadecimal"`
	Country         *string  `json:"country,omitempty" validate:"omitempty,len=2"`
	DateOfBirth     *string  `json:"db,omitempty" validate:"omitempty,len=64,hexadecimal"`
	ExternalID      *string  `json:"external_id,omitempty" validate:"omitempty,len=64,hexadecimal"`
	FBC             *string  `json:"fbc,omitempty"`
	FBP             *string  `json:"fbp,omitempty"`
	FacebookLoginID []string `json:"hashed_maids,omitempty" validate:"omitempty,dive,len=64,hexadecimal"`
}

type CustomData struct {
	Value    *float64 `json:"value,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// Response is the Graph API answer to a successful events call.
type Response struct {
	EventsReceived int      `json:"events_received"`
	Messages       []string `json:"messages,omitempty"`
	FBTraceID      string   `json:"fbtrace_id,omitempty"`
}

// BuildPayload maps a conversion to a single-event payload. event_time is
// the purchase time when the gateway sent one, otherwise the intake time.
func BuildPayload(pixelID string, c *domain.Conversion) *EventPayload {
	eventTime := c.CreatedAt
	if c.PurchasedAt != nil && !c.PurchasedAt.IsZero() {
		eventTime = *c.PurchasedAt
	}

	user := &UserData{
		Email:       c.EmailHash,
		Phone:       c.PhoneHash,
		FirstName:   c.FirstNameHash,
		LastName:    c.LastNameHash,
		City:        c.CityHash,
		State:       c.StateHash,
		ZipCode:     c.ZipCodeHash,
		Country:     lowerCountry(c.CountryCode),
		DateOfBirth: c.DateOfBirthHash,
		ExternalID:  c.ExternalIDHash,
		FBC:         c.FBC,
		FBP:         c.FBP,
	}
	if c.FacebookLoginIDHash != nil {
		user.FacebookLoginID = []string{*c.FacebookLoginIDHash}
	}

	return &EventPayload{
		Data: []Event{{
			EventName:     EventNamePurchase,
			EventTime:     eventTime.Unix(),
			EventID:       c.GatewayEventID,
			EventSourceID: pixelID,
			ActionSource:  ActionSourceWebsite,
			UserData:      user,
			CustomData: &CustomData{
				Value:    c.Amount,
				Currency: c.Currency,
			},
		}},
	}
}

// Graph API wants the ISO code lowercased; it is still sent unhashed.
func lowerCountry(code *string) *string {
	if code == nil {
		return nil
	}
	s := strings.ToLower(*code)
	return &s
}

// ValidatePayload rejects payloads without events, an event id or user data.
func ValidatePayload(p *EventPayload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
