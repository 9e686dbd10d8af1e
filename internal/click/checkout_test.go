package click

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

type MockCheckoutRepository struct{ mock.Mock }

func (m *MockCheckoutRepository) Create(ctx context.Context, co *domain.Checkout) error {
	args := m.Called(ctx, co)
	if co.ID == uuid.Nil {
		co.ID = uuid.New()
	}
	return args.Error(0)
}

func TestCheckoutService_Ingest(t *testing.T) {
	tenantID := uuid.New()
	value := 394.0
	price := 197.0

	tests := []struct {
		name         string
		currency     string
		wantCurrency *string
	}{
		{name: "iso code is upper-cased", currency: "brl", wantCurrency: strPtr("BRL")},
		{name: "symbol is mapped", currency: "R$", wantCurrency: strPtr("BRL")},
		{name: "unknown currency is dropped", currency: "DOLLARS"},
		{name: "absent currency", currency: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := new(MockTenantRepository)
			checkouts := new(MockCheckoutRepository)
			tenants.On("GetByID", mock.Anything, tenantID).Return(&domain.Tenant{ID: tenantID}, nil)
			checkouts.On("Create", mock.Anything, mock.AnythingOfType("*domain.Checkout")).Return(nil)

			co, err := NewCheckoutService(tenants, checkouts, testLogger()).Ingest(context.Background(), tenantID, CheckoutInput{
				CartValue: &value,
				Currency:  tt.currency,
				CartItems: []domain.CartItem{{ID: "curso-1", Name: "Curso", Quantity: 2, Price: &price}},
				UTMSource: "facebook",
				FBC:       "fb.1.1700000000000.IwAR9",
			}, ClientInfo{IP: "198.51.100.4"})
			require.NoError(t, err)

			assert.NotEqual(t, uuid.Nil, co.ID)
			assert.Equal(t, &value, co.CartValue)
			assert.Equal(t, tt.wantCurrency, co.Currency)
			require.Len(t, co.CartItems, 1)
			assert.Equal(t, 2, co.CartItems[0].Quantity)
			assert.Equal(t, "fb.1.1700000000000.IwAR9", *co.FBC)
			assert.Nil(t, co.FBCLID)
		})
	}
}

func TestCheckoutService_Ingest_Validation(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name  string
		input CheckoutInput
	}{
		{name: "negative cart value", input: CheckoutInput{CartValue: &negative}},
		{name: "negative item quantity", input: CheckoutInput{CartItems: []domain.CartItem{{ID: "a", Quantity: -1}}}},
		{name: "negative item price", input: CheckoutInput{CartItems: []domain.CartItem{{ID: "a", Price: &negative}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := new(MockTenantRepository)
			checkouts := new(MockCheckoutRepository)

			co, err := NewCheckoutService(tenants, checkouts, testLogger()).
				Ingest(context.Background(), uuid.New(), tt.input, ClientInfo{})
			assert.Nil(t, co)
			assert.ErrorIs(t, err, domain.ErrValidationFailed)
			tenants.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func strPtr(s string) *string {
	return &s
}
