package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ConversionMessage carries everything the dispatch worker needs to rebuild
// the Conversions API payload without reading the conversion row again.
type ConversionMessage struct {
	TenantID     uuid.UUID          `json:"tenantId" validate:"required"`
	ConversionID uuid.UUID          `json:"conversionId" validate:"required"`
	Conversion   ConversionSnapshot `json:"conversion"`
}

// ConversionSnapshot is the conversion as it was when enqueued.
type ConversionSnapshot struct {
	ID             uuid.UUID      `json:"id" validate:"required"`
	Gateway        domain.Gateway `json:"gateway" validate:"required"`
	GatewayEventID string         `json:"gatewayEventId" validate:"required"`
	Amount         *float64       `json:"amount,omitempty"`
	Currency       string         `json:"currency,omitempty" validate:"omitempty,len=3"`

	EmailHash           *string `json:"emailHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	PhoneHash           *string `json:"phoneHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	FirstNameHash       *string `json:"firstNameHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	LastNameHash        *string `json:"lastNameHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	CityHash            *string `json:"cityHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	StateHash           *string `json:"stateHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	CountryCode         *string `json:"countryCode,omitempty" validate:"omitempty,len=2,alpha"`
	ZipCodeHash         *string `json:"zipCodeHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	DateOfBirthHash     *string `json:"dateOfBirthHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	ExternalIDHash      *string `json:"externalIdHash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	FacebookLoginIDHash *string `json:"facebookLoginId,omitempty" validate:"omitempty,len=64,hexadecimal"`

	FBC *string `json:"fbc,omitempty"`
	FBP *string `json:"fbp,omitempty"`

	PurchasedAt *time.Time `json:"purchasedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
}

// NewConversionMessage snapshots a persisted conversion.
func NewConversionMessage(c *domain.Conversion) ConversionMessage {
	return ConversionMessage{
		TenantID:     c.TenantID,
		ConversionID: c.ID,
		Conversion: ConversionSnapshot{
			ID:                  c.ID,
			Gateway:             c.Gateway,
			GatewayEventID:      c.GatewayEventID,
			Amount:              c.Amount,
			Currency:            c.Currency,
			EmailHash:           c.EmailHash,
			PhoneHash:           c.PhoneHash,
			FirstNameHash:       c.FirstNameHash,
			LastNameHash:        c.LastNameHash,
			CityHash:            c.CityHash,
			StateHash:           c.StateHash,
			CountryCode:         c.CountryCode,
			ZipCodeHash:         c.ZipCodeHash,
			DateOfBirthHash:     c.DateOfBirthHash,
			ExternalIDHash:      c.ExternalIDHash,
			FacebookLoginIDHash: c.FacebookLoginIDHash,
			FBC:                 c.FBC,
			FBP:                 c.FBP,
			PurchasedAt:         c.PurchasedAt,
			CreatedAt:           c.CreatedAt,
		},
	}
}

// ToConversion rebuilds the conversion fields carried by the message.
// Match and dispatch state are not part of the snapshot.
func (m ConversionMessage) ToConversion() *domain.Conversion {
	s := m.Conversion
	return &domain.Conversion{
		ID:       m.ConversionID,
		TenantID: m.TenantID,
		HashedConversion: domain.HashedConversion{
			Gateway:             s.Gateway,
			GatewayEventID:      s.GatewayEventID,
			Amount:              s.Amount,
			Currency:            s.Currency,
			PurchasedAt:         s.PurchasedAt,
			FBC:                 s.FBC,
			FBP:                 s.FBP,
			CountryCode:         s.CountryCode,
			EmailHash:           s.EmailHash,
			PhoneHash:           s.PhoneHash,
			FirstNameHash:       s.FirstNameHash,
			LastNameHash:        s.LastNameHash,
			DateOfBirthHash:     s.DateOfBirthHash,
			CityHash:            s.CityHash,
			StateHash:           s.StateHash,
			ZipCodeHash:         s.ZipCodeHash,
			ExternalIDHash:      s.ExternalIDHash,
			FacebookLoginIDHash: s.FacebookLoginIDHash,
		},
		CreatedAt: s.CreatedAt,
	}
}

// Validate rejects messages the worker could not dispatch.
func (m ConversionMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

func (m ConversionMessage) Marshal() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal conversion message: %w", err)
	}
	return string(b), nil
}

// DecodeConversionMessage parses and validates a queue body.
func DecodeConversionMessage(body string) (*ConversionMessage, error) {
	var m ConversionMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
