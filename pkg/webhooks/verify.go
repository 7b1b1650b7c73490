package webhooks

// VerificationResult reports the outcome of checking an inbound webhook
// signature against a shared secret.
type VerificationResult struct {
	Valid   bool           `json:"valid"`
	Scheme  string         `json:"scheme"`
	Details map[string]any `json:"details"`
}

// Verifier checks the signature header of an inbound webhook delivery.
type Verifier interface {
	Scheme() string
	Verify(rawBody []byte, signature, secret string) (VerificationResult, error)
}
