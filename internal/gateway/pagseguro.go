package gateway

import (
	"strings"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// Códigos de status de transação do PagSeguro.
var pagSeguroStatus = map[string]string{
	"1":  "awaiting_payment",
	"2":  "in_analysis",
	"3":  "paid",
	"4":  "available",
	"5":  "in_dispute",
	"6":  "returned",
	"7":  "cancelled",
	"8":  "debited",
	"9":  "temporary_retention",
	"10": "chargeback",
	"11": "refund_requested",
	"12": "refunded",
	"13": "chargeback_debited",
}

type pagSeguroPayload struct {
	ID            flexString `json:"id"`
	Code          flexString `json:"code"`
	Reference     flexString `json:"reference"`
	Status        flexString `json:"status"`
	GrossAmount   flexFloat  `json:"grossAmount"`
	Currency      string     `json:"currency"`
	LastEventDate string     `json:"lastEventDate"`
	Sender        struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone struct {
			AreaCode flexString `json:"areaCode"`
			Number   flexString `json:"number"`
		} `json:"phone"`
	} `json:"sender"`
	Shipping struct {
		Address struct {
			City       string     `json:"city"`
			State      string     `json:"state"`
			Country    string     `json:"country"`
			PostalCode flexString `json:"postalCode"`
		} `json:"address"`
	} `json:"shipping"`
	Items []struct {
		ID          flexString `json:"id"`
		Description string     `json:"description"`
	} `json:"items"`
}

// PagSeguroAdapter handles PagSeguro transaction notifications. PagSeguro
// carries no Meta browser identifiers, so fbc and fbp are never set.
type PagSeguroAdapter struct {
	hexVerifier
}

// NewPagSeguroAdapter creates a new PagSeguro adapter
func NewPagSeguroAdapter() *PagSeguroAdapter {
	return &PagSeguroAdapter{hexVerifier{header: "X-PagSeguro-Signature"}}
}

func (a *PagSeguroAdapter) Gateway() domain.Gateway {
	return domain.GatewayPagSeguro
}

func (a *PagSeguroAdapter) SupportedParameters() []string {
	return []string{
		ParamEmail, ParamPhone, ParamFirstName, ParamLastName,
		ParamCity, ParamState, ParamZipCode, ParamCountry, ParamExternalID,
		ParamValue, ParamCurrency,
	}
}

func (a *PagSeguroAdapter) Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error) {
	var p pagSeguroPayload
	if err := decode(rawBody, &p); err != nil {
		return nil, err
	}

	id := firstNonEmpty(p.Reference.String(), p.Code.String(), p.ID.String())
	if id == nil {
		return nil, ErrMissingEventID
	}

	status := strings.TrimSpace(p.Status.String())
	eventType := "unknown"
	if mapped, ok := pagSeguroStatus[status]; ok {
		eventType = mapped
	} else if status != "" {
		eventType = status
	}

	var phone *string
	if number := strings.TrimSpace(p.Sender.Phone.Number.String()); number != "" {
		phone = optional(strings.TrimSpace(p.Sender.Phone.AreaCode.String()) + number)
	}

	first, last := splitFullName(p.Sender.Name)

	event := &domain.CanonicalPurchaseEvent{
		Gateway:    domain.GatewayPagSeguro,
		EventID:    *id,
		EventType:  eventType,
		Amount:     p.GrossAmount.Ptr(),
		Currency:   optional(p.Currency),
		Email:      optional(p.Sender.Email),
		Phone:      phone,
		FirstName:  first,
		LastName:   last,
		City:       optional(p.Shipping.Address.City),
		State:      optional(p.Shipping.Address.State),
		Country:    optional(p.Shipping.Address.Country),
		ZipCode:    optional(p.Shipping.Address.PostalCode.String()),
		ExternalID: optional(p.Reference.String()),
		Timestamp:  parseTimestamp(p.LastEventDate),
		RawPayload: copyRaw(rawBody),
	}

	if len(p.Items) > 0 {
		event.ProductID = optional(p.Items[0].ID.String())
		event.ProductName = optional(p.Items[0].Description)
	}

	return event, nil
}
