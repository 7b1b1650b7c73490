// Package notify sends order update emails through a Resend-compatible API.
// Delivery is best effort; callers never roll anything back on failure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	APIKey  string
	From    string
	HTTP    *http.Client
}

// New returns nil when no API key is configured; a nil client skips sending.
func New(baseURL, apiKey, from string) *Client {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		From:    from,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if c == nil {
		return fmt.Errorf("email delivery not configured")
	}
	reqBody, _ := json.Marshal(map[string]any{
		"from":    c.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emails", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email api returned %d", resp.StatusCode)
	}
	return nil
}

type Message struct {
	Subject string
	HTML    string
}

var eventMessages = map[string]Message{
	"order.shipped": {
		Subject: "Your order has been shipped",
		HTML:    "Great news! Your order has been shipped and is on its way to you.",
	},
	"order.delivered": {
		Subject: "Your order has been delivered",
		HTML:    "Your order has been successfully delivered. We hope you enjoy your products!",
	},
	"order.cancelled": {
		Subject: "Your order has been cancelled",
		HTML:    "Your order has been cancelled. If you have any questions, please contact our support team.",
	},
	"payment.completed": {
		Subject: "Payment confirmed for your order",
		HTML:    "Your payment has been successfully processed. Your order is now being prepared.",
	},
	"payment.failed": {
		Subject: "Payment failed for your order",
		HTML:    "Unfortunately, your payment could not be processed. Please try again or contact support.",
	},
}

// OrderStatusMessage builds the notification for an order event. Events
// without a dedicated template fall back to a generic status update.
func OrderStatusMessage(event, orderID, status, ordersURL string) Message {
	msg, ok := eventMessages[event]
	if !ok {
		msg = Message{
			Subject: "Order status update: " + status,
			HTML:    "Your order status has been updated to: " + status,
		}
	}
	msg.HTML = fmt.Sprintf(
		"<p>%s</p><p>Order ID: <strong>%s</strong></p><p><a href=%q>View Order Details</a></p>",
		msg.HTML, orderID, ordersURL,
	)
	return msg
}
