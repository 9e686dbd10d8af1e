package gateway

import (
	"strings"
	"unicode"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

type perfectPayPayload struct {
	OrderID   flexString `json:"order_id"`
	Status    string     `json:"status"`
	Amount    flexFloat  `json:"amount"`
	Currency  string     `json:"currency"`
	EventTime flexString `json:"event_time"`
	ProductID flexString `json:"product_id"`
	Product   string     `json:"product_name"`
	FBC       string     `json:"fbc"`
	FBP       string     `json:"fbp"`
	Customer  struct {
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		FullName        string `json:"full_name"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Birthdate       string `json:"birthdate"`
		DateOfBirth     string `json:"date_of_birth"`
		City            string `json:"city"`
		AddressCity     string `json:"address_city"`
		State           string `json:"state"`
		AddressState    string `json:"address_state"`
		Country         string `json:"country"`
		AddressCountry  string `json:"address_country"`
		ZipCode         string `json:"zip_code"`
		AddressZipCode  string `json:"address_zipcode"`
		ExternalID      string `json:"external_id"`
		FacebookLoginID string `json:"facebook_login_id"`
	} `json:"customer"`
}

// PerfectPayAdapter handles PerfectPay sale webhooks. It is the only
// gateway exposing a Facebook login id.
type PerfectPayAdapter struct {
	hexVerifier
}

// NewPerfectPayAdapter creates a new PerfectPay adapter
func NewPerfectPayAdapter() *PerfectPayAdapter {
	return &PerfectPayAdapter{hexVerifier{header: "X-PerfectPay-Signature"}}
}

func (a *PerfectPayAdapter) Gateway() domain.Gateway {
	return domain.GatewayPerfectPay
}

func (a *PerfectPayAdapter) SupportedParameters() []string {
	return []string{
		ParamEmail, ParamPhone, ParamFirstName, ParamLastName, ParamDateOfBirth,
		ParamCity, ParamState, ParamZipCode, ParamCountry, ParamExternalID,
		ParamFBC, ParamFBP, ParamFacebookLoginID, ParamValue, ParamCurrency,
	}
}

func (a *PerfectPayAdapter) Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error) {
	var p perfectPayPayload
	if err := decode(rawBody, &p); err != nil {
		return nil, err
	}

	eventID, err := requireEventID(p.OrderID.String())
	if err != nil {
		return nil, err
	}

	eventType := "unknown"
	if t := optional(p.Status); t != nil {
		eventType = *t
	}

	c := p.Customer
	first, last := optional(c.FirstName), optional(c.LastName)
	if first == nil && last == nil {
		first, last = splitFullName(c.FullName)
	}

	externalID := optional(c.ExternalID)
	if externalID == nil {
		externalID = &eventID
	}

	return &domain.CanonicalPurchaseEvent{
		Gateway:         domain.GatewayPerfectPay,
		EventID:         eventID,
		EventType:       eventType,
		Amount:          p.Amount.Ptr(),
		Currency:        optional(p.Currency),
		FBC:             optional(p.FBC),
		FBP:             optional(p.FBP),
		Email:           optional(c.Email),
		Phone:           brazilianPhone(c.Phone),
		FirstName:       first,
		LastName:        last,
		DateOfBirth:     firstNonEmpty(c.Birthdate, c.DateOfBirth),
		City:            firstNonEmpty(c.City, c.AddressCity),
		State:           firstNonEmpty(c.State, c.AddressState),
		Country:         firstNonEmpty(c.Country, c.AddressCountry),
		ZipCode:         firstNonEmpty(c.ZipCode, c.AddressZipCode),
		ExternalID:      externalID,
		FacebookLoginID: optional(c.FacebookLoginID),
		ProductID:       optional(p.ProductID.String()),
		ProductName:     optional(p.Product),
		Timestamp:       parseTimestamp(p.EventTime.String()),
		RawPayload:      copyRaw(rawBody),
	}, nil
}

// brazilianPhone prefixes +55 to national numbers (DDD + 8 or 9 digits).
// Anything else is passed through for the normalizer.
func brazilianPhone(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	if len(digits) == 10 || len(digits) == 11 {
		phone := "+55" + digits
		return &phone
	}
	return &raw
}
