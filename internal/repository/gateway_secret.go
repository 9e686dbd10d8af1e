package repository

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// GatewaySecretRepository reads per-tenant webhook secrets from tenant_gateways.
type GatewaySecretRepository struct {
	pool PgxPool
}

// NewGatewaySecretRepository creates a new gateway secret repository
func NewGatewaySecretRepository(pool PgxPool) *GatewaySecretRepository {
	return &GatewaySecretRepository{pool: pool}
}

// GetSecret returns the webhook secret a tenant configured for a gateway.
func (r *GatewaySecretRepository) GetSecret(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway) (string, error) {
	query := `
		SELECT webhook_secret
		FROM tenant_gateways
		WHERE tenant_id = $1 AND gateway = $2
	`

	var secret string
	err := r.pool.QueryRow(ctx, query, tenantID, string(gateway)).Scan(&secret)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrGatewaySecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get gateway secret: %w", err)
	}

	return secret, nil
}

// SecretStore is implemented by GatewaySecretRepository.
type SecretStore interface {
	GetSecret(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway) (string, error)
}

// SecretCache is implemented by cache.RedisCache.
type SecretCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedGatewaySecretStore serves secrets from cache and falls back to the
// store on any cache error. Missing secrets are never cached. Cached values
// are sealed with XChaCha20-Poly1305 bound to their key, so Redis never holds a usable
// secret and an entry copied under another tenant fails to open.
type CachedGatewaySecretStore struct {
	store SecretStore
	cache SecretCache
	ttl   time.Duration
	aead  cipher.AEAD
}

// NewCachedGatewaySecretStore wraps store with a read-through cache. key
// must be chacha20poly1305.KeySize bytes.
func NewCachedGatewaySecretStore(store SecretStore, cache SecretCache, ttl time.Duration, key []byte) (*CachedGatewaySecretStore, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("secret cache key: %w", err)
	}
	return &CachedGatewaySecretStore{store: store, cache: cache, ttl: ttl, aead: aead}, nil
}

func (s *CachedGatewaySecretStore) GetSecret(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway) (string, error) {
	key := secretCacheKey(tenantID, gateway)

	if sealed, err := s.cache.Get(ctx, key); err == nil && sealed != "" {
		if secret, ok := s.open(key, sealed); ok {
			return secret, nil
		}
	}

	secret, err := s.store.GetSecret(ctx, tenantID, gateway)
	if err != nil {
		return "", err
	}

	if sealed, err := s.seal(key, secret); err == nil {
		_ = s.cache.Set(ctx, key, sealed, s.ttl)
	}
	return secret, nil
}

// Invalidate drops a cached secret after rotation.
func (s *CachedGatewaySecretStore) Invalidate(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway) error {
	return s.cache.Delete(ctx, secretCacheKey(tenantID, gateway))
}

func (s *CachedGatewaySecretStore) seal(key, secret string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(secret), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *CachedGatewaySecretStore) open(key, sealed string) (string, bool) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", false
	}
	n := s.aead.NonceSize()
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], []byte(key))
	if err != nil {
		return "", false
	}
	return string(plain), true
}

func secretCacheKey(tenantID uuid.UUID, gateway domain.Gateway) string {
	return fmt.Sprintf("gateway_secret:%s:%s", tenantID, gateway)
}
