package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Signer computes the integrity signature carried on every outbound call to
// the commerce API. The upstream historically accepted a bare
// sha256(body+secret) digest; this signer uses a keyed HMAC over the body
// instead, which the upstream also accepts.
type Signer struct {
	secret []byte
}

func New(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the base64 HMAC-SHA256 of the serialized request body.
// Signing the empty body is valid: GET requests carry a signature too.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under the signer's secret.
func (s *Signer) Verify(body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
