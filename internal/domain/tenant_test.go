package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestTenant_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tenant  Tenant
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid tenant",
			tenant: Tenant{
				ID:       uuid.New(),
				Name:     "Loja Exemplo",
				Slug:     "loja-exemplo",
				IsActive: true,
				PixelID:  "123456789",
			},
			wantErr: false,
		},
		{
			name:    "empty name",
			tenant:  Tenant{Slug: "loja", PixelID: "1"},
			wantErr: true,
			errMsg:  "tenant name cannot be empty",
		},
		{
			name:    "empty slug",
			tenant:  Tenant{Name: "Loja", PixelID: "1"},
			wantErr: true,
			errMsg:  "tenant slug cannot be empty",
		},
		{
			name:    "invalid slug",
			tenant:  Tenant{Name: "Loja", Slug: "Loja Exemplo", PixelID: "1"},
			wantErr: true,
			errMsg:  "tenant slug must contain only lowercase letters, numbers and hyphens",
		},
		{
			name:    "missing pixel",
			tenant:  Tenant{Name: "Loja", Slug: "loja"},
			wantErr: true,
			errMsg:  "tenant pixel id cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tenant.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error, got nil")
				}
				if err.Error() != tt.errMsg {
					t.Errorf("Validate() error = %v, want %v", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestParseGateway(t *testing.T) {
	tests := []struct {
		in     string
		want   Gateway
		wantOK bool
	}{
		{"hotmart", GatewayHotmart, true},
		{"  Stripe ", GatewayStripe, true},
		{"PAGSEGURO", GatewayPagSeguro, true},
		{"perfectpay", GatewayPerfectPay, true},
		{"paypal", Gateway("paypal"), false},
		{"", Gateway(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGateway(tt.in)
			if ok != tt.wantOK {
				t.Errorf("ParseGateway(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseGateway(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchStrategy_Valid(t *testing.T) {
	for _, s := range []MatchStrategy{MatchStrategyFBC, MatchStrategyFBP, MatchStrategyUnmatched} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if MatchStrategy("email").Valid() {
		t.Errorf("email should not be a valid strategy")
	}
}
