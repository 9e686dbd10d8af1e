package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHex checks a hex HMAC-SHA256 signature in constant time. A
// "sha256=" prefix is tolerated. Decoding failures and length mismatches
// are reported as ErrInvalidSignature.
func VerifyHex(secret string, payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	if secret == "" {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// hexVerifier is embedded by gateways that sign the raw body with a plain
// hex HMAC-SHA256 header.
type hexVerifier struct {
	header string
}

func (v hexVerifier) SignatureHeader() string {
	return v.header
}

func (v hexVerifier) Verify(rawBody []byte, signature, secret string) error {
	return VerifyHex(secret, rawBody, signature)
}
