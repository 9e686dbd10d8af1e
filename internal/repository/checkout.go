package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// CheckoutRepository stores InitiateCheckout hits.
type CheckoutRepository struct {
	pool PgxPool
}

// NewCheckoutRepository creates a new checkout repository.
func NewCheckoutRepository(pool PgxPool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

// Create inserts the checkout. A nil cart is stored as an empty array.
func (r *CheckoutRepository) Create(ctx context.Context, co *domain.Checkout) error {
	query := `
		INSERT INTO checkouts (
			id, tenant_id, cart_value, currency, cart_items,
			utm_source, utm_medium, utm_campaign,
			fbclid, fbc, fbp, ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING created_at
	`

	if co.ID == uuid.Nil {
		co.ID = uuid.New()
	}
	if co.CartItems == nil {
		co.CartItems = []domain.CartItem{}
	}

	items, err := json.Marshal(co.CartItems)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		co.ID,
		co.TenantID,
		co.CartValue,
		co.Currency,
		items,
		co.UTMSource,
		co.UTMMedium,
		co.UTMCampaign,
		co.FBCLID,
		co.FBC,
		co.FBP,
		co.IP,
		co.UserAgent,
	).Scan(&co.CreatedAt)

	if err != nil {
		return fmt.Errorf("create checkout: %w", err)
	}

	return nil
}
