// Package upstream is the signed HTTP client for the external commerce API.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"healingbuds/pkg/signing"
)

// Response is an upstream reply, passed through to the caller verbatim.
type Response struct {
	Status int
	Body   []byte
}

type Client struct {
	BaseURL string
	APIKey  string
	Signer  *signing.Signer
	HTTP    *http.Client
}

func New(baseURL, apiKey string, signer *signing.Signer, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		Signer:  signer,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Do issues one signed call. No retries and no idempotency: repeating a
// create repeats it upstream. Failures surface to the caller as-is.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-auth-apikey", c.APIKey)
	req.Header.Set("x-auth-signature", c.Signer.Sign(body))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read upstream response: %w", err)
	}
	return Response{Status: resp.StatusCode, Body: respBody}, nil
}
