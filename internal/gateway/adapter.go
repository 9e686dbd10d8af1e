// Package gateway verifies and parses purchase webhooks from the supported
// payment gateways into domain.CanonicalPurchaseEvent values.
package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

var (
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMissingSignature   = fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	ErrStaleSignature     = fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	ErrInvalidPayload     = errors.New("invalid webhook payload")
	ErrMissingEventID     = fmt.Errorf("%w: missing event id", ErrInvalidPayload)
	ErrUnsupportedGateway = errors.New("unsupported gateway")
)

// CAPI user and custom data parameters an adapter may be able to supply.
const (
	ParamEmail           = "em"
	ParamPhone           = "ph"
	ParamFirstName       = "fn"
	ParamLastName        = "ln"
	ParamDateOfBirth     = "db"
	ParamCity            = "ct"
	ParamState           = "st"
	ParamZipCode         = "zp"
	ParamCountry         = "country"
	ParamExternalID      = "external_id"
	ParamFBC             = "fbc"
	ParamFBP             = "fbp"
	ParamFacebookLoginID = "hashed_maids"
	ParamValue           = "value"
	ParamCurrency        = "currency"
)

// Adapter is the verify/parse capability pair of one gateway.
type Adapter interface {
	Gateway() domain.Gateway
	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader() string
	Verify(rawBody []byte, signature, secret string) error
	Parse(rawBody []byte) (*domain.CanonicalPurchaseEvent, error)
	// SupportedParameters lists the CAPI parameters the gateway can fill.
	// Anything not listed is always left absent.
	SupportedParameters() []string
}

// Registry maps gateway names to their adapter.
type Registry struct {
	adapters map[domain.Gateway]Adapter
}

// NewRegistry returns a registry with every supported gateway.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[domain.Gateway]Adapter{
			domain.GatewayHotmart:    NewHotmartAdapter(),
			domain.GatewayKiwify:     NewKiwifyAdapter(),
			domain.GatewayStripe:     NewStripeAdapter(),
			domain.GatewayPagSeguro:  NewPagSeguroAdapter(),
			domain.GatewayPerfectPay: NewPerfectPayAdapter(),
		},
	}
}

// Lookup returns the adapter for g or an error wrapping ErrUnsupportedGateway.
func (r *Registry) Lookup(g domain.Gateway) (Adapter, error) {
	adapter, ok := r.adapters[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, g)
	}
	return adapter, nil
}

// optional returns nil for blank input, otherwise a trimmed copy.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// firstNonEmpty returns the first non-blank value as an optional.
func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if p := optional(v); p != nil {
			return p
		}
	}
	return nil
}

// splitFullName is a best-effort split of a single name field: the first
// token is the first name, everything after it the last name.
func splitFullName(full string) (first, last *string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return nil, nil
	}
	first = &parts[0]
	if len(parts) > 1 {
		rest := strings.Join(parts[1:], " ")
		last = &rest
	}
	return first, last
}

func requireEventID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingEventID
	}
	return id, nil
}

func copyRaw(body []byte) []byte {
	raw := make([]byte, len(body))
	copy(raw, body)
	return raw
}
