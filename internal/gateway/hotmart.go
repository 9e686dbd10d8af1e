package gateway

import (
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

type hotmartPayload struct {
	ID       flexString `json:"id"`
	Event    string     `json:"event"`
	Status   string     `json:"status"`
	FBC      string     `json:"fbc"`
	FBP      string     `json:"fbp"`
	Purchase struct {
		FullPrice    flexFloat  `json:"full_price"`
		Price        flexFloat  `json:"price"`
		Currency     string     `json:"currency"`
		ApprovedDate flexString `json:"approved_date"`
	} `json:"purchase"`
	Buyer struct {
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
	} `json:"buyer"`
	Product struct {
		ID   flexString `json:"id"`
		Name string     `json:"name"`
	} `json:"product"`
}

// HotmartAdapter handles Hotmart postbacks signed with X-Hotmart-Signature.
type HotmartAdapter struct {
	hexVerifier
}

// NewHotmartAdapter creates a new Hotmart adapter
func NewHotmartAdapter() *HotmartAdapter {
	return &HotmartAdapter{hexVerifier{header: "X-Hotmart-Signature"}}
}

func (a *HotmartAdapter) Gateway() domain.Gateway {
	return domain.GatewayHotmart
}

func (a *HotmartAdapter) SupportedParameters() []string {
	return []string{
		ParamEmail, ParamPhone, ParamFirstName, ParamLastName, ParamDateOfBirth,
		ParamCity, ParamState, ParamZipCode, ParamCountry, ParamExternalID,
		ParamFBC, ParamFBP, ParamValue, ParamCurrency,
	}
}

func (a *HotmartAdapter) Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error) {
	var p hotmartPayload
	if err := decode(rawBody, &p); err != nil {
		return nil, err
	}

	eventID, err := requireEventID(p.ID.String())
	if err != nil {
		return nil, err
	}

	eventType := "purchase"
	if t := firstNonEmpty(p.Event, p.Status); t != nil {
		eventType = *t
	}

	amount := p.Purchase.FullPrice.Ptr()
	if amount == nil {
		amount = p.Purchase.Price.Ptr()
	}

	first, last := splitFullName(p.Buyer.Name)

	return &domain.CanonicalPurchaseEvent{
		Gateway:     domain.GatewayHotmart,
		EventID:     eventID,
		EventType:   eventType,
		Amount:      amount,
		Currency:    optional(p.Purchase.Currency),
		FBC:         optional(p.FBC),
		FBP:         optional(p.FBP),
		Email:       optional(p.Buyer.Email),
		Phone:       optional(p.Buyer.Phone),
		FirstName:   first,
		LastName:    last,
		DateOfBirth: optional(p.Buyer.BirthDate),
		City:        optional(p.Buyer.Address.City),
		State:       optional(p.Buyer.Address.State),
		Country:     optional(p.Buyer.Address.Country),
		ZipCode:     optional(p.Buyer.Address.ZipCode),
		ExternalID:  optional(p.Buyer.Document),
		ProductID:   optional(p.Product.ID.String()),
		ProductName: optional(p.Product.Name),
		Timestamp:   parseTimestamp(p.Purchase.ApprovedDate.String()),
		RawPayload:  copyRaw(rawBody),
	}, nil
}
