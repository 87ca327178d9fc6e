// Package cashfree verifies deliveries on the legacy Cashfree webhook path.
// The gateway is no longer used for new checkouts, but in-flight orders from
// the migration window still report back through it.
package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	errSecretRequired    = errors.New("cashfree webhook secret is required")
	errSignatureRequired = errors.New("cashfree signature header is required")
	errTimestampRequired = errors.New("cashfree timestamp header is required")
)

// Verifier checks the x-webhook-signature header Cashfree attaches to every
// delivery. The signature is base64(HMAC-SHA256(timestamp + rawBody, secret)).
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier for the shared webhook secret.
func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify recomputes the signature over timestamp+payload and compares it to
// the received header. A nil return means the payload can be trusted.
func (v *Verifier) Verify(payload []byte, timestamp, signature string) error {
	if v == nil {
		return errSecretRequired
	}
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return errTimestampRequired
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errSignatureRequired
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("cashfree signature mismatch")
	}
	return nil
}
