package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// WebhookAcceptedResponse represents the response for an accepted webhook
type WebhookAcceptedResponse struct {
	OK           bool   `json:"ok" example:"true"`
	WebhookRawID string `json:"webhook_raw_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ConversionID string `json:"conversion_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	EventID      string `json:"event_id" example:"HP16015479281022"`
	Duplicate    bool   `json:"duplicate" example:"false"`
}

// ClickRequest represents a click ingest body
type ClickRequest struct {
	FBCLID      string `json:"fbclid,omitempty" example:"IwAR2F4-dbP0l7Mn1IawQQGCINEz7PYXQvwjNwB_qa2ofrHyiLjcbCRxTDMgk"`
	FBC         string `json:"fbc,omitempty" example:"fb.1.1700000000000.IwAR2F4"`
	FBP         string `json:"fbp,omitempty" example:"fb.1.1700000000000.1098115397"`
	UTMSource   string `json:"utmSource,omitempty" example:"facebook"`
	UTMMedium   string `json:"utmMedium,omitempty" example:"cpc"`
	UTMCampaign string `json:"utmCampaign,omitempty" example:"black-friday"`
}

// ClickCreatedResponse represents the response for an ingested click
type ClickCreatedResponse struct {
	ID string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// PageviewRequest represents a pageview ingest body
type PageviewRequest struct {
	URL         string `json:"url" example:"https://loja.example/oferta?utm_source=facebook"`
	Referrer    string `json:"referrer,omitempty" example:"https://l.facebook.com/"`
	Title       string `json:"title,omitempty" example:"Oferta especial"`
	UTMSource   string `json:"utmSource,omitempty" example:"facebook"`
	UTMMedium   string `json:"utmMedium,omitempty" example:"cpc"`
	UTMCampaign string `json:"utmCampaign,omitempty" example:"black-friday"`
	UTMContent  string `json:"utmContent,omitempty" example:"video-1"`
	UTMTerm     string `json:"utmTerm,omitempty" example:"curso"`
	FBCLID      string `json:"fbclid,omitempty" example:"IwAR2F4-dbP0l7Mn1IawQQGCINEz7PYXQvwjNwB_qa2ofrHyiLjcbCRxTDMgk"`
	FBC         string `json:"fbc,omitempty" example:"fb.1.1700000000000.IwAR2F4"`
	FBP         string `json:"fbp,omitempty" example:"fb.1.1700000000000.1098115397"`
}

// CartItem represents one checkout cart line
type CartItem struct {
	ID       string  `json:"id,omitempty" example:"curso-1"`
	Name     string  `json:"name,omitempty" example:"Curso de Tráfego"`
	Quantity int     `json:"quantity,omitempty" example:"1"`
	Price    float64 `json:"price,omitempty" example:"197.00"`
}

// CheckoutRequest represents a checkout ingest body
type CheckoutRequest struct {
	CartValue   float64    `json:"cartValue,omitempty" example:"197.00"`
	Currency    string     `json:"currency,omitempty" example:"BRL"`
	CartItems   []CartItem `json:"cartItems,omitempty"`
	UTMSource   string     `json:"utmSource,omitempty" example:"facebook"`
	UTMMedium   string     `json:"utmMedium,omitempty" example:"cpc"`
	UTMCampaign string     `json:"utmCampaign,omitempty" example:"black-friday"`
	FBCLID      string     `json:"fbclid,omitempty" example:"IwAR2F4"`
	FBC         string     `json:"fbc,omitempty" example:"fb.1.1700000000000.IwAR2F4"`
	FBP         string     `json:"fbp,omitempty" example:"fb.1.1700000000000.1098115397"`
}

// StrategyCount represents one row of the match breakdown
type StrategyCount struct {
	Strategy   string  `json:"strategy" example:"fbc"`
	Count      int64   `json:"count" example:"42"`
	Percentage float64 `json:"percentage" example:"60.0"`
}

// MatchStats represents match rates since a point in time
type MatchStats struct {
	Total      int64           `json:"total" example:"70"`
	Matched    int64           `json:"matched" example:"55"`
	MatchRate  float64         `json:"match_rate" example:"78.5"`
	ByStrategy []StrategyCount `json:"by_strategy"`
}

// DeliveryStats represents Conversions API delivery progress
type DeliveryStats struct {
	Total       int64   `json:"total" example:"70"`
	SentToCAPI  int64   `json:"sent_to_capi" example:"68"`
	Pending     int64   `json:"pending" example:"2"`
	SuccessRate float64 `json:"success_rate" example:"97.1"`
}

// StatsResponse represents the tenant stats response
type StatsResponse struct {
	TenantID string        `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Since    string        `json:"since" example:"2026-04-01T00:00:00Z"`
	Matching MatchStats    `json:"matching"`
	Delivery DeliveryStats `json:"delivery"`
}

// HealthResponse represents the liveness/readiness response
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Version string            `json:"version,omitempty" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_SIGNATURE"`
	Message string `json:"message" example:"Invalid webhook signature"`
}

// NewSwagger describes the public /v1 API.
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Track AI Attribution API",
		Version:     "v1.0.0",
		Description: "Purchase webhook intake and ad click ingestion for server-side Conversions API attribution",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	webhookErrors := []response.Response{
		response.New(ErrorResponse{Code: "UNSUPPORTED_GATEWAY", Message: "Unsupported payment gateway"}, "400", "Bad Request"),
		response.New(ErrorResponse{Code: "INVALID_PAYLOAD", Message: "Webhook payload could not be processed"}, "400", "Bad Request"),
		response.New(ErrorResponse{Code: "INVALID_SIGNATURE", Message: "Invalid webhook signature"}, "401", "Unauthorized"),
		response.New(ErrorResponse{Code: "TENANT_INACTIVE", Message: "Tenant account is inactive"}, "403", "Forbidden"),
		response.New(ErrorResponse{Code: "TENANT_NOT_FOUND", Message: "Tenant not found"}, "404", "Not Found"),
		response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
	}

	ingestErrors := []response.Response{
		response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
		response.New(ErrorResponse{Code: "TENANT_NOT_FOUND", Message: "Tenant not found"}, "404", "Not Found"),
		response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
		response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests"}, "429", "Too Many Requests"),
		response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
	}

	endpoints := []*endpoint.EndPoint{
		// POST /v1/webhooks/{gateway}/{tenantId} - Purchase webhook intake
		endpoint.New(
			endpoint.POST,
			"/webhooks/{gateway}/{tenantId}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Receive a purchase webhook"),
			endpoint.WithDescription("Verifies the gateway signature over the raw body, stores the payload and the hashed conversion, attributes it to an ad click and queues it for the Conversions API. Redeliveries of the same event return the original identifiers with duplicate=true."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("gateway", parameter.Path, parameter.WithDescription("hotmart, kiwify, stripe, pagseguro or perfectpay")),
				parameter.StrParam("tenantId", parameter.Path, parameter.WithDescription("Tenant UUID")),
				parameter.StrParam("X-Hotmart-Signature", parameter.Header, parameter.WithDescription("Hotmart signature")),
				parameter.StrParam("X-Kiwify-Signature", parameter.Header, parameter.WithDescription("Kiwify signature")),
				parameter.StrParam("Stripe-Signature", parameter.Header, parameter.WithDescription("Stripe t=...,v1=... signature")),
				parameter.StrParam("X-PagSeguro-Signature", parameter.Header, parameter.WithDescription("PagSeguro signature")),
				parameter.StrParam("X-PerfectPay-Signature", parameter.Header, parameter.WithDescription("PerfectPay signature")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookAcceptedResponse{}, "202", "Webhook accepted"),
			}),
			endpoint.WithErrors(webhookErrors),
		),

		// POST /v1/clicks/{tenantId} - Click ingest
		endpoint.New(
			endpoint.POST,
			"/clicks/{tenantId}",
			endpoint.WithTags("Clicks"),
			endpoint.WithSummary("Record an ad click"),
			endpoint.WithDescription("Stores a click or landing hit with its Meta identifiers. fbclid is stored as sent; fbc is only recorded when the browser cookie is present."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("tenantId", parameter.Path, parameter.WithDescription("Tenant UUID")),
			),
			endpoint.WithBody(ClickRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClickCreatedResponse{}, "201", "Click recorded"),
			}),
			endpoint.WithErrors(ingestErrors),
		),

		// POST /v1/pageviews/{tenantId} - Pageview ingest
		endpoint.New(
			endpoint.POST,
			"/pageviews/{tenantId}",
			endpoint.WithTags("Clicks"),
			endpoint.WithSummary("Record a landing page view"),
			endpoint.WithDescription("Stores a page load with its URL, referrer, UTM parameters and Meta identifiers. Shares the click rate limit."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("tenantId", parameter.Path, parameter.WithDescription("Tenant UUID")),
			),
			endpoint.WithBody(PageviewRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClickCreatedResponse{}, "201", "Pageview recorded"),
			}),
			endpoint.WithErrors(ingestErrors),
		),

		// POST /v1/checkouts/{tenantId} - Checkout ingest
		endpoint.New(
			endpoint.POST,
			"/checkouts/{tenantId}",
			endpoint.WithTags("Clicks"),
			endpoint.WithSummary("Record a checkout start"),
			endpoint.WithDescription("Stores an InitiateCheckout hit with the cart. A currency that is not an ISO 4217 code is dropped. Shares the click rate limit."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("tenantId", parameter.Path, parameter.WithDescription("Tenant UUID")),
			),
			endpoint.WithBody(CheckoutRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClickCreatedResponse{}, "201", "Checkout recorded"),
			}),
			endpoint.WithErrors(ingestErrors),
		),

		// GET /v1/stats/{tenantId} - Match and delivery stats
		endpoint.New(
			endpoint.GET,
			"/stats/{tenantId}",
			endpoint.WithTags("Stats"),
			endpoint.WithSummary("Get attribution stats"),
			endpoint.WithDescription("Match rate per strategy since the given time (default the last 24 hours) and Conversions API delivery progress for the tenant."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("tenantId", parameter.Path, parameter.WithDescription("Tenant UUID")),
				parameter.StrParam("since", parameter.Query, parameter.WithDescription("RFC 3339 lower bound for match stats")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatsResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "TENANT_NOT_FOUND", Message: "Tenant not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
