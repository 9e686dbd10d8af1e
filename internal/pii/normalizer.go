// Package pii turns a CanonicalPurchaseEvent into a HashedConversion: every
// personal field is normalized and SHA-256 hashed the way the Conversions
// API expects, while fbc, fbp and the country code stay in clear.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

// Normalize is deterministic: the same event always yields the same hashes.
func Normalize(ev *domain.CanonicalPurchaseEvent) domain.HashedConversion {
	currency := domain.DefaultCurrency
	if ev.Currency != nil {
		if c, ok := CurrencyCode(*ev.Currency); ok {
			currency = c
		}
	}

	return domain.HashedConversion{
		Gateway:        ev.Gateway,
		GatewayEventID: ev.EventID,
		EventType:      ev.EventType,
		Amount:         ev.Amount,
		Currency:       currency,
		PurchasedAt:    ev.Timestamp,

		FBC:         passThrough(ev.FBC),
		FBP:         passThrough(ev.FBP),
		CountryCode: CountryCode(deref(ev.Country)),

		EmailHash:           Hash(deref(ev.Email)),
		PhoneHash:           HashPhone(deref(ev.Phone)),
		FirstNameHash:       Hash(deref(ev.FirstName)),
		LastNameHash:        Hash(deref(ev.LastName)),
		DateOfBirthHash:     HashDateOfBirth(deref(ev.DateOfBirth)),
		CityHash:            Hash(deref(ev.City)),
		StateHash:           Hash(deref(ev.State)),
		ZipCodeHash:         Hash(deref(ev.ZipCode)),
		ExternalIDHash:      Hash(deref(ev.ExternalID)),
		FacebookLoginIDHash: Hash(deref(ev.FacebookLoginID)),
	}
}

// CurrencyCode returns the upper-case ISO 4217 code for v. Common symbols
// and Portuguese names are mapped; anything else that is not three letters
// is rejected so it never reaches the CHAR(3) column or the queue message.
func CurrencyCode(v string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(v))
	if upper == "" {
		return "", false
	}
	if code, ok := currencyAliases[upper]; ok {
		return code, true
	}
	if len(upper) != 3 || !isAlpha(upper) {
		return "", false
	}
	return upper, true
}

// Hash lowercases and trims v and returns its SHA-256 hex digest.
// Blank input is absent, never the hash of an empty string.
func Hash(v string) *string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(v))
	h := hex.EncodeToString(sum[:])
	return &h
}

// HashPhone keeps only digits before hashing.
func HashPhone(v string) *string {
	return Hash(digits(v))
}

// DateOfBirth canonicalizes any date spelling to YYYYMMDD by taking the
// first 8 digits. Fewer than 8 digits is absent.
func DateOfBirth(v string) (string, bool) {
	d := digits(v)
	if len(d) < 8 {
		return "", false
	}
	return d[:8], true
}

func HashDateOfBirth(v string) *string {
	dob, ok := DateOfBirth(v)
	if !ok {
		return nil
	}
	return Hash(dob)
}

func digits(v string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
}

func passThrough(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// CountryCode maps a country spelling to upper-case ISO-2. Any two-letter
// alphabetic input is accepted as-is; unknown names are absent.
func CountryCode(v string) *string {
	upper := strings.ToUpper(strings.TrimSpace(v))
	if upper == "" {
		return nil
	}

	if len(upper) == 2 && isAlpha(upper) {
		return &upper
	}

	key := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return '_'
		}
		return r
	}, upper)

	code, ok := countryAliases[key]
	if !ok {
		return nil
	}
	return &code
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
