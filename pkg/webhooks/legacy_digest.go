package webhooks

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const legacyDigestScheme = "legacy-digest/v1"

type legacyDigestVerifier struct{}

// NewLegacyDigestVerifier verifies the upstream's historical signature
// scheme: sha256(body+secret), sent as either hex or base64. Kept for
// compatibility while the upstream migrates to keyed HMAC signatures.
func NewLegacyDigestVerifier() Verifier { return &legacyDigestVerifier{} }

func (v *legacyDigestVerifier) Scheme() string { return legacyDigestScheme }

func (v *legacyDigestVerifier) Verify(rawBody []byte, signature, secret string) (VerificationResult, error) {
	if strings.TrimSpace(secret) == "" {
		return VerificationResult{}, fmt.Errorf("webhook verifier secret is empty")
	}

	res := VerificationResult{
		Scheme:  legacyDigestScheme,
		Details: map[string]any{"signature_present": false},
	}
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return res, nil
	}
	res.Details["signature_present"] = true

	sum := sha256.Sum256(append(append([]byte{}, rawBody...), []byte(secret)...))
	hexDigest := hex.EncodeToString(sum[:])
	b64Digest := base64.StdEncoding.EncodeToString(sum[:])
	res.Valid = subtle.ConstantTimeCompare([]byte(sig), []byte(hexDigest)) == 1 ||
		subtle.ConstantTimeCompare([]byte(sig), []byte(b64Digest)) == 1
	return res, nil
}
