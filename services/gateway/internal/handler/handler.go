// Package handler composes the gateway pipeline: classify, authenticate,
// authorize, execute upstream, respond.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"healingbuds/pkg/httpx"
	"healingbuds/services/gateway/internal/actions"
	"healingbuds/services/gateway/internal/authn"
	"healingbuds/services/gateway/internal/regions"
	"healingbuds/services/gateway/internal/store"
	"healingbuds/services/gateway/internal/upstream"
)

type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (authn.Identity, error)
}

type ClientStore interface {
	GetClientByExternalID(ctx context.Context, clientID string) (store.ClientRecord, error)
	UserOwnsClient(ctx context.Context, userID string) (bool, error)
	InsertOrderMirror(ctx context.Context, rec store.OrderRecord) error
	RecordAuditEvent(ctx context.Context, eventType, userID, clientID string, payload []byte) error
}

type Upstream interface {
	Do(ctx context.Context, method, path string, body []byte) (upstream.Response, error)
}

type CatalogCache interface {
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, body []byte)
}

type Handler struct {
	auth           Authenticator
	store          ClientStore
	upstream       Upstream
	cache          CatalogCache
	defaultCountry string
	log            *slog.Logger
}

func New(auth Authenticator, st ClientStore, up Upstream, cache CatalogCache, defaultCountry string, log *slog.Logger) *Handler {
	return &Handler{
		auth:           auth,
		store:          st,
		upstream:       up,
		cache:          cache,
		defaultCountry: defaultCountry,
		log:            log,
	}
}

// HandleAction serves POST /api/v1/actions.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req actions.Request
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "Invalid request body")
		return
	}

	category := actions.Classify(req.Action)
	if category == actions.Unknown {
		h.log.Warn("unknown action", "action", req.Action)
		httpx.WriteActionError(w, 400, "Unknown action", req.Action)
		return
	}

	// Requests may name a market region instead of a country; resolve it
	// before routing. Unknown regions fall back to the configured default.
	if req.CountryCode == "" && req.Region != "" {
		if country := regions.CountryFor(req.Region); country != "" {
			req.CountryCode = country
		} else {
			h.log.Warn("unknown region, using default country", "region", req.Region)
		}
	}

	var identity authn.Identity
	var clientRec *store.ClientRecord

	if category == actions.Protected {
		var err error
		identity, err = h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			switch {
			case errors.Is(err, authn.ErrMissingCredential):
				h.log.Warn("missing authorization header", "action", req.Action)
				httpx.WriteError(w, 401, "Unauthorized: Missing authorization header")
			case errors.Is(err, authn.ErrInvalidCredential):
				h.log.Warn("authentication failed", "action", req.Action)
				httpx.WriteError(w, 401, "Unauthorized: Invalid authentication token")
			default:
				httpx.WriteError(w, 500, "Internal error")
			}
			return
		}

		if actions.OwnershipChecked(req.Action) {
			if clientID := req.TargetClientID(); clientID != "" {
				rec, err := h.store.GetClientByExternalID(r.Context(), clientID)
				if err != nil {
					if errors.Is(err, store.ErrClientNotFound) {
						httpx.WriteError(w, 404, "Client not found")
						return
					}
					httpx.WriteError(w, 500, "Internal error")
					return
				}
				if rec.UserID != identity.UserID {
					h.log.Warn("ownership check failed", "action", req.Action, "user_id", identity.UserID, "client_id", clientID)
					h.audit(r.Context(), "OWNERSHIP_DENIED", identity.UserID, clientID, map[string]any{"action": req.Action})
					httpx.WriteError(w, 403, "Forbidden: You do not own this resource")
					return
				}
				clientRec = &rec
			}
		}

		// One live client record per caller, enforced at write time.
		if req.Action == "create-client" {
			exists, err := h.store.UserOwnsClient(r.Context(), identity.UserID)
			if err != nil {
				httpx.WriteError(w, 500, "Internal error")
				return
			}
			if exists {
				httpx.WriteError(w, 409, "Client record already exists for this user")
				return
			}
		}

		// Eligibility gate: no upstream order unless KYC and admin approval
		// are both complete. Runs strictly before the upstream call.
		if req.Action == "create-order" {
			if clientID := req.TargetClientID(); clientID != "" {
				rec := clientRec
				if rec == nil {
					loaded, err := h.store.GetClientByExternalID(r.Context(), clientID)
					if err != nil {
						if errors.Is(err, store.ErrClientNotFound) {
							httpx.WriteError(w, 400, "Client verification failed")
							return
						}
						httpx.WriteError(w, 500, "Internal error")
						return
					}
					rec = &loaded
				}
				if !rec.IsKycVerified || rec.AdminApproval != store.ApprovalVerified {
					h.log.Warn("order blocked: client not verified",
						"client_id", clientID, "kyc", rec.IsKycVerified, "approval", rec.AdminApproval)
					h.audit(r.Context(), "ORDER_BLOCKED", identity.UserID, clientID, map[string]any{
						"kyc":      rec.IsKycVerified,
						"approval": rec.AdminApproval,
					})
					httpx.WriteError(w, 403, "Medical verification required before placing orders")
					return
				}
			}
		}
	}

	method, path, body, ok := actions.Route(req, h.defaultCountry)
	if !ok {
		httpx.WriteActionError(w, 400, "Unknown action", req.Action)
		return
	}

	cacheKey := ""
	if category == actions.Public && h.cache != nil {
		cacheKey = "catalog:" + path
		if cached := h.cache.Get(r.Context(), cacheKey); cached != nil {
			httpx.WriteRaw(w, 200, cached)
			return
		}
	}

	resp, err := h.upstream.Do(r.Context(), method, path, body)
	if err != nil {
		h.log.Error("upstream request failed", "action", req.Action, "error", err)
		httpx.WriteError(w, 502, "Upstream request failed")
		return
	}
	if len(resp.Body) > 0 && !json.Valid(resp.Body) {
		h.log.Error("malformed upstream response", "action", req.Action, "status", resp.Status)
		httpx.WriteError(w, 502, "Invalid upstream response")
		return
	}

	if req.Action == "create-order" && resp.Status >= 200 && resp.Status < 300 {
		h.mirrorOrder(r.Context(), identity, resp.Body)
	}
	if cacheKey != "" && resp.Status == 200 {
		h.cache.Set(r.Context(), cacheKey, resp.Body)
	}

	httpx.WriteRaw(w, resp.Status, resp.Body)
}

// mirrorOrder records the local OrderRecord for an order just placed
// upstream. Best effort: the upstream order already exists, so a mirror
// failure is logged, never surfaced.
func (h *Handler) mirrorOrder(ctx context.Context, identity authn.Identity, respBody []byte) {
	orderID := extractOrderID(respBody)
	if orderID == "" {
		h.log.Warn("order created upstream but no order id in response")
		return
	}
	rec := store.OrderRecord{
		OrderID:       orderID,
		UserID:        identity.UserID,
		Status:        "PENDING",
		PaymentStatus: "UNPAID",
	}
	if err := h.store.InsertOrderMirror(ctx, rec); err != nil {
		h.log.Error("order mirror insert failed", "order_id", orderID, "error", err)
		return
	}
	h.audit(ctx, "ORDER_PLACED", identity.UserID, "", map[string]any{"order_id": orderID})
}

func (h *Handler) audit(ctx context.Context, eventType, userID, clientID string, details map[string]any) {
	b, _ := json.Marshal(details)
	if err := h.store.RecordAuditEvent(ctx, eventType, userID, clientID, b); err != nil {
		h.log.Error("audit event insert failed", "event_type", eventType, "error", err)
	}
}

func extractOrderID(body []byte) string {
	var outer struct {
		OrderID string `json:"orderId"`
		ID      string `json:"id"`
		Data    struct {
			OrderID string `json:"orderId"`
			ID      string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return ""
	}
	for _, v := range []string{outer.Data.OrderID, outer.Data.ID, outer.OrderID, outer.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}
