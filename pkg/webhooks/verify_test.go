package webhooks

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier()
	secret := "test_secret"
	body := []byte(`{"event":"order.shipped","orderId":"ord_1"}`)

	res, err := v.Verify(body, SignHex(secret, body), secret)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected signature to verify")
	}

	res, _ = v.Verify(body, "sha256="+SignHex(secret, body), secret)
	if !res.Valid {
		t.Fatalf("expected prefixed signature to verify")
	}

	res, _ = v.Verify(body, "deadbeef", secret)
	if res.Valid {
		t.Fatalf("expected invalid signature")
	}

	res, _ = v.Verify(body, "", secret)
	if res.Valid || res.Details["signature_present"] != false {
		t.Fatalf("expected missing signature to be invalid, got %+v", res)
	}

	if _, err := v.Verify(body, SignHex(secret, body), ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestLegacyDigestVerifierHexAndBase64(t *testing.T) {
	v := NewLegacyDigestVerifier()
	secret := "legacy_secret"
	body := []byte(`{"event":"payment.completed","orderId":"ord_2"}`)

	sum := sha256.Sum256(append(append([]byte{}, body...), []byte(secret)...))

	res, err := v.Verify(body, hex.EncodeToString(sum[:]), secret)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected hex digest to verify")
	}

	res, _ = v.Verify(body, base64.StdEncoding.EncodeToString(sum[:]), secret)
	if !res.Valid {
		t.Fatalf("expected base64 digest to verify")
	}

	res, _ = v.Verify(body, "bogus", secret)
	if res.Valid {
		t.Fatalf("expected invalid digest")
	}
}
