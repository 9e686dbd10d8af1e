package domain

import "strings"

// Gateway identifies a payment gateway that delivers purchase webhooks.
type Gateway string

const (
	GatewayHotmart    Gateway = "hotmart"
	GatewayKiwify     Gateway = "kiwify"
	GatewayStripe     Gateway = "stripe"
	GatewayPagSeguro  Gateway = "pagseguro"
	GatewayPerfectPay Gateway = "perfectpay"
)

var validGateways = map[Gateway]bool{
	GatewayHotmart:    true,
	GatewayKiwify:     true,
	GatewayStripe:     true,
	GatewayPagSeguro:  true,
	GatewayPerfectPay: true,
}

// ParseGateway normalizes a path segment into a known gateway.
func ParseGateway(s string) (Gateway, bool) {
	g := Gateway(strings.ToLower(strings.TrimSpace(s)))
	return g, validGateways[g]
}

// Gateways returns the closed set of supported gateways.
func Gateways() []Gateway {
	return []Gateway{GatewayHotmart, GatewayKiwify, GatewayStripe, GatewayPagSeguro, GatewayPerfectPay}
}

func (g Gateway) String() string {
	return string(g)
}
