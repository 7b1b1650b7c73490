package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const hmacScheme = "hmac-sha256/v1"

type hmacVerifier struct{}

// NewHMACVerifier verifies hex HMAC-SHA256 signatures, with or without the
// conventional "sha256=" prefix.
func NewHMACVerifier() Verifier { return &hmacVerifier{} }

func (v *hmacVerifier) Scheme() string { return hmacScheme }

func (v *hmacVerifier) Verify(rawBody []byte, signature, secret string) (VerificationResult, error) {
	if strings.TrimSpace(secret) == "" {
		return VerificationResult{}, fmt.Errorf("webhook verifier secret is empty")
	}

	res := VerificationResult{
		Scheme: hmacScheme,
		Details: map[string]any{
			"signature_present":   false,
			"signature_decodable": false,
		},
	}

	sig := strings.TrimSpace(signature)
	if sig == "" {
		return res, nil
	}
	res.Details["signature_present"] = true
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return res, nil
	}
	res.Details["signature_decodable"] = true

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	res.Valid = hmac.Equal(provided, mac.Sum(nil))
	return res, nil
}

// SignHex produces the hex HMAC signature the verifier expects. Used by tests
// and by partners simulating deliveries.
func SignHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
