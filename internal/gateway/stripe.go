package gateway

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// StripeTolerance bounds the clock skew accepted in Stripe-Signature,
// in both directions.
const StripeTolerance = 5 * time.Minute

type stripeAddress struct {
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type stripeContact struct {
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Name    string        `json:"name"`
	Address stripeAddress `json:"address"`
}

type stripePayload struct {
	ID      string     `json:"id"`
	Type    string     `json:"type"`
	Created flexString `json:"created"`
	Data    struct {
		Object struct {
			Amount          flexFloat       `json:"amount"`
			AmountTotal     flexFloat       `json:"amount_total"`
			Currency        string          `json:"currency"`
			Customer        json.RawMessage `json:"customer"`
			ReceiptEmail    string          `json:"receipt_email"`
			CustomerDetails stripeContact   `json:"customer_details"`
			Metadata        struct {
				FBC string `json:"fbc"`
				FBP string `json:"fbp"`
			} `json:"metadata"`
			Charges struct {
				Data []struct {
					BillingDetails stripeContact `json:"billing_details"`
				} `json:"data"`
			} `json:"charges"`
		} `json:"object"`
	} `json:"data"`
}

// StripeAdapter handles Stripe events. Signatures use the Stripe-Signature
// scheme ("t=<unix>,v1=<hex>") instead of a bare hex HMAC.
type StripeAdapter struct {
	now func() time.Time
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter() *StripeAdapter {
	return &StripeAdapter{now: time.Now}
}

func (a *StripeAdapter) Gateway() domain.Gateway {
	return domain.GatewayStripe
}

func (a *StripeAdapter) SignatureHeader() string {
	return "Stripe-Signature"
}

func (a *StripeAdapter) SupportedParameters() []string {
	return []string{
		ParamEmail, ParamPhone, ParamFirstName, ParamLastName,
		ParamCity, ParamState, ParamZipCode, ParamCountry, ParamExternalID,
		ParamFBC, ParamFBP, ParamValue, ParamCurrency,
	}
}

// Verify checks Stripe-Signature against the raw body within StripeTolerance.
func (a *StripeAdapter) Verify(rawBody []byte, signature, secret string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	if secret == "" {
		return ErrInvalidSignature
	}

	ts, ok := stripeTimestamp(signature)
	if !ok {
		return ErrInvalidSignature
	}

	// stripe-go only rejects old timestamps, so future skew is checked here.
	skew := a.now().Sub(time.Unix(ts, 0))
	if skew > StripeTolerance || skew < -StripeTolerance {
		return ErrStaleSignature
	}

	if err := webhook.ValidatePayloadWithTolerance(rawBody, signature, secret, StripeTolerance); err != nil {
		if errors.Is(err, webhook.ErrTooOld) {
			return ErrStaleSignature
		}
		return ErrInvalidSignature
	}
	return nil
}

func stripeTimestamp(header string) (int64, bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || key != "t" {
			continue
		}
		ts, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, false
		}
		return ts, true
	}
	return 0, false
}

// Parse maps a Stripe event. Amounts are converted from minor units.
func (a *StripeAdapter) Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error) {
	var p stripePayload
	if err := decode(rawBody, &p); err != nil {
		return nil, err
	}

	eventID, err := requireEventID(p.ID)
	if err != nil {
		return nil, err
	}

	eventType := "unknown"
	if t := optional(p.Type); t != nil {
		eventType = *t
	}

	obj := p.Data.Object

	var currency *string
	if c := optional(obj.Currency); c != nil {
		upper := strings.ToUpper(*c)
		currency = &upper
	}

	// Valores da Stripe vêm na menor unidade da moeda.
	minor := obj.Amount
	if !minor.Valid {
		minor = obj.AmountTotal
	}
	var amount *float64
	if minor.Valid {
		v := minor.Value / stripeMinorUnits(obj.Currency)
		amount = &v
	}

	contact := obj.CustomerDetails
	for _, charge := range obj.Charges.Data {
		contact = mergeContact(contact, charge.BillingDetails)
	}

	first, last := splitFullName(contact.Name)

	return &domain.CanonicalPurchaseEvent{
		Gateway:    domain.GatewayStripe,
		EventID:    eventID,
		EventType:  eventType,
		Amount:     amount,
		Currency:   currency,
		FBC:        optional(obj.Metadata.FBC),
		FBP:        optional(obj.Metadata.FBP),
		Email:      firstNonEmpty(obj.ReceiptEmail, contact.Email),
		Phone:      optional(contact.Phone),
		FirstName:  first,
		LastName:   last,
		City:       optional(contact.Address.City),
		State:      optional(contact.Address.State),
		Country:    optional(contact.Address.Country),
		ZipCode:    optional(contact.Address.PostalCode),
		ExternalID: optional(stripeCustomerID(obj.Customer)),
		Timestamp:  parseTimestamp(p.Created.String()),
		RawPayload: copyRaw(rawBody),
	}, nil
}

// https://docs.stripe.com/currencies#special-cases
var (
	stripeZeroDecimal = map[string]bool{
		"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
		"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
		"VUV": true, "XAF": true, "XOF": true, "XPF": true,
	}
	stripeThreeDecimal = map[string]bool{
		"BHD": true, "JOD": true, "KWD": true, "OMR": true, "TND": true,
	}
)

// stripeMinorUnits is the divisor from a Stripe amount to the major unit.
func stripeMinorUnits(currency string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case stripeZeroDecimal[code]:
		return 1
	case stripeThreeDecimal[code]:
		return 1000
	default:
		return 100
	}
}

// mergeContact fills blanks in base from next.
func mergeContact(base, next stripeContact) stripeContact {
	if base.Email == "" {
		base.Email = next.Email
	}
	if base.Phone == "" {
		base.Phone = next.Phone
	}
	if base.Name == "" {
		base.Name = next.Name
	}
	if base.Address == (stripeAddress{}) {
		base.Address = next.Address
	}
	return base
}

// stripeCustomerID accepts either a customer id or an expanded customer object.
func stripeCustomerID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
