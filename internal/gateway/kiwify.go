package gateway

import (
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

type kiwifyPayload struct {
	ID        flexString `json:"id"`
	Event     string     `json:"event"`
	Timestamp flexString `json:"timestamp"`
	Data      struct {
		ID       flexString `json:"id"`
		Status   string     `json:"status"`
		Amount   flexFloat  `json:"amount"`
		Currency string     `json:"currency"`
		FBC      string     `json:"fbc"`
		FBP      string     `json:"fbp"`
		Customer struct {
			Email     string `json:"email"`
			Phone     string `json:"phone"`
			Name      string `json:"name"`
			BirthDate string `json:"birth_date"`
			Document  string `json:"document"`
			Address   struct {
				City    string `json:"city"`
				State   string `json:"state"`
				Country string `json:"country"`
				ZipCode string `json:"zip_code"`
			} `json:"address"`
		} `json:"customer"`
		Product struct {
			ID   flexString `json:"id"`
			Name string     `json:"name"`
		} `json:"product"`
	} `json:"data"`
}

// KiwifyAdapter handles Kiwify order webhooks signed with X-Kiwify-Signature.
type KiwifyAdapter struct {
	hexVerifier
}

// NewKiwifyAdapter creates a new Kiwify adapter
func NewKiwifyAdapter() *KiwifyAdapter {
	return &KiwifyAdapter{hexVerifier{header: "X-Kiwify-Signature"}}
}

func (a *KiwifyAdapter) Gateway() domain.Gateway {
	return domain.GatewayKiwify
}

func (a *KiwifyAdapter) SupportedParameters() []string {
	return []string{
		ParamEmail, ParamPhone, ParamFirstName, ParamLastName, ParamDateOfBirth,
		ParamCity, ParamState, ParamZipCode, ParamCountry, ParamExternalID,
		ParamFBC, ParamFBP, ParamValue, ParamCurrency,
	}
}

func (a *KiwifyAdapter) Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error) {
	var p kiwifyPayload
	if err := decode(rawBody, &p); err != nil {
		return nil, err
	}

	id := p.ID.String()
	if id == "" {
		id = p.Data.ID.String()
	}
	eventID, err := requireEventID(id)
	if err != nil {
		return nil, err
	}

	eventType := "unknown"
	if t := firstNonEmpty(p.Event, p.Data.Status); t != nil {
		eventType = *t
	}

	c := p.Data.Customer
	first, last := splitFullName(c.Name)

	return &domain.CanonicalPurchaseEvent{
		Gateway:     domain.GatewayKiwify,
		EventID:     eventID,
		EventType:   eventType,
		Amount:      p.Data.Amount.Ptr(),
		Currency:    optional(p.Data.Currency),
		FBC:         optional(p.Data.FBC),
		FBP:         optional(p.Data.FBP),
		Email:       optional(c.Email),
		Phone:       optional(c.Phone),
		FirstName:   first,
		LastName:    last,
		DateOfBirth: optional(c.BirthDate),
		City:        optional(c.Address.City),
		State:       optional(c.Address.State),
		Country:     optional(c.Address.Country),
		ZipCode:     optional(c.Address.ZipCode),
		ExternalID:  optional(c.Document),
		ProductID:   optional(p.Data.Product.ID.String()),
		ProductName: optional(p.Data.Product.Name),
		Timestamp:   parseTimestamp(p.Timestamp.String()),
		RawPayload:  copyRaw(rawBody),
	}, nil
}
