// Package webhook relays upstream order events into local state and
// notifications.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"healingbuds/pkg/httpx"
	"healingbuds/pkg/webhooks"
	"healingbuds/services/relay/internal/notify"
)

const maxWebhookBodyBytes = 1 << 20 // 1MB

const signatureHeader = "x-webhook-signature"

// Payload is one inbound event notification. Transient.
type Payload struct {
	Event         string          `json:"event"`
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status,omitempty"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	Timestamp     string          `json:"timestamp"`
	Data          json.RawMessage `json:"data,omitempty"`
}

type OrderStore interface {
	GetOrderOwner(ctx context.Context, orderID string) (OrderOwner, error)
	UpdateOrder(ctx context.Context, orderID string, status, paymentStatus *string) error
}

type Notifier interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Handler struct {
	store            OrderStore
	notifier         Notifier
	verifiers        []webhooks.Verifier
	secret           string
	requireSignature bool
	ordersURL        string
	log              *slog.Logger
}

func NewHandler(store OrderStore, notifier Notifier, secret string, requireSignature bool, ordersURL string, log *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		// Accept the current HMAC scheme and the upstream's legacy digest.
		verifiers:        []webhooks.Verifier{webhooks.NewHMACVerifier(), webhooks.NewLegacyDigestVerifier()},
		secret:           secret,
		requireSignature: requireSignature,
		ordersURL:        ordersURL,
		log:              log,
	}
}

// HandleEvent serves POST /webhook.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, 413, "Payload too large")
			return
		}
		httpx.WriteError(w, 400, "Unreadable body")
		return
	}

	signature := strings.TrimSpace(r.Header.Get(signatureHeader))
	if h.secret != "" && signature != "" {
		if !h.verifySignature(rawBody, signature) {
			h.log.Warn("invalid webhook signature")
			httpx.WriteError(w, 401, "Invalid signature")
			return
		}
	} else if h.requireSignature {
		h.log.Warn("unsigned webhook rejected", "have_secret", h.secret != "", "have_signature", signature != "")
		httpx.WriteError(w, 401, "Missing webhook signature")
		return
	}

	var payload Payload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		httpx.WriteError(w, 400, "Invalid payload")
		return
	}
	h.log.Info("webhook received", "event", payload.Event, "order_id", payload.OrderID)

	status, paymentStatus, known := transition(payload)
	if !known {
		// Unrecognized events are ignored on purpose; the upstream adds
		// event types faster than we consume them.
		h.log.Info("unhandled webhook event", "event", payload.Event)
		httpx.WriteJSON(w, 200, map[string]any{"success": true, "event": payload.Event, "emailSent": false})
		return
	}

	emailSent := false
	owner, err := h.store.GetOrderOwner(r.Context(), payload.OrderID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		// No local mirror; nothing to update, delivery still succeeds.
		h.log.Warn("webhook for unknown order", "order_id", payload.OrderID)
	case err != nil:
		h.log.Error("order lookup failed", "order_id", payload.OrderID, "error", err)
	default:
		if status != nil || paymentStatus != nil {
			if err := h.store.UpdateOrder(r.Context(), payload.OrderID, status, paymentStatus); err != nil {
				h.log.Error("order update failed", "order_id", payload.OrderID, "error", err)
			} else {
				h.log.Info("order updated", "order_id", payload.OrderID, "event", payload.Event)
				emailSent = h.notify(r.Context(), owner, payload, status)
			}
		}
	}

	httpx.WriteJSON(w, 200, map[string]any{"success": true, "event": payload.Event, "emailSent": emailSent})
}

func (h *Handler) verifySignature(rawBody []byte, signature string) bool {
	for _, v := range h.verifiers {
		res, err := v.Verify(rawBody, signature, h.secret)
		if err == nil && res.Valid {
			return true
		}
	}
	return false
}

// notify dispatches at most one email to the order owner. Fire and forget:
// a failed send never rolls back the state update.
func (h *Handler) notify(ctx context.Context, owner OrderOwner, payload Payload, status *string) bool {
	if h.notifier == nil || owner.Email == "" {
		return false
	}
	displayStatus := payload.Status
	if displayStatus == "" && status != nil {
		displayStatus = *status
	}
	if displayStatus == "" {
		displayStatus = "Updated"
	}
	msg := notify.OrderStatusMessage(payload.Event, payload.OrderID, displayStatus, h.ordersURL)
	if err := h.notifier.Send(ctx, owner.Email, msg.Subject, msg.HTML); err != nil {
		h.log.Error("notification failed", "order_id", payload.OrderID, "error", err)
		return false
	}
	h.log.Info("notification sent", "order_id", payload.OrderID, "to", owner.Email)
	return true
}

// transition maps an event to the order fields it sets. The third return is
// false for events this relay does not recognize.
func transition(p Payload) (status, paymentStatus *string, known bool) {
	set := func(v string) *string { return &v }
	switch p.Event {
	case "order.shipped":
		return set("SHIPPED"), nil, true
	case "order.delivered":
		return set("DELIVERED"), nil, true
	case "order.cancelled":
		return set("CANCELLED"), nil, true
	case "payment.completed":
		return nil, set("PAID"), true
	case "payment.failed":
		return nil, set("FAILED"), true
	case "order.status_updated", "order.updated":
		if p.Status != "" {
			status = set(p.Status)
		}
		if p.PaymentStatus != "" {
			paymentStatus = set(p.PaymentStatus)
		}
		return status, paymentStatus, true
	default:
		return nil, nil, false
	}
}
