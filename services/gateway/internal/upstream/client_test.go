package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healingbuds/pkg/signing"
)

func TestDoSignsRequests(t *testing.T) {
	signer, _ := signing.New("secret")
	var gotAPIKey, gotSignature string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-auth-apikey")
		gotSignature = r.Header.Get("x-auth-signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`{"data":{"orderId":"ord_1"}}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "api_key", signer, 5*time.Second)
	body := []byte(`{"clientId":"cli_1"}`)
	resp, err := c.Do(context.Background(), http.MethodPost, "/orders", body)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if resp.Status != 201 {
		t.Fatalf("unexpected status: %d", resp.Status)
	}
	if gotAPIKey != "api_key" {
		t.Fatalf("unexpected api key header: %s", gotAPIKey)
	}
	if !signer.Verify(gotBody, gotSignature) {
		t.Fatalf("signature does not verify against delivered body")
	}
	if string(resp.Body) != `{"data":{"orderId":"ord_1"}}` {
		t.Fatalf("unexpected body: %s", resp.Body)
	}
}

func TestDoSignsEmptyBody(t *testing.T) {
	signer, _ := signing.New("secret")
	var gotSignature string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("x-auth-signature")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "api_key", signer, 5*time.Second)
	if _, err := c.Do(context.Background(), http.MethodGet, "/strains?countryCode=PRT", nil); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if !signer.Verify(nil, gotSignature) {
		t.Fatalf("expected empty-body signature on GET")
	}
}

func TestDoPassesThroughUpstreamErrors(t *testing.T) {
	signer, _ := signing.New("secret")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		_, _ = w.Write([]byte(`{"error":"invalid payload"}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "api_key", signer, 5*time.Second)
	resp, err := c.Do(context.Background(), http.MethodPost, "/carts", []byte(`{}`))
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if resp.Status != 422 || string(resp.Body) != `{"error":"invalid payload"}` {
		t.Fatalf("expected pass-through of upstream failure, got %d %s", resp.Status, resp.Body)
	}
}

func TestDoSurfacesTransportErrors(t *testing.T) {
	signer, _ := signing.New("secret")
	c := New("http://127.0.0.1:1", "api_key", signer, 500*time.Millisecond)
	if _, err := c.Do(context.Background(), http.MethodGet, "/strains", nil); err == nil {
		t.Fatalf("expected transport error")
	}
}
