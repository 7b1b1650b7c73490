package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"healingbuds/services/gateway/internal/authn"
	"healingbuds/services/gateway/internal/store"
	"healingbuds/services/gateway/internal/upstream"
)

type fakeAuth struct {
	identity authn.Identity
	err      error
	calls    int
}

func (f *fakeAuth) Authenticate(ctx context.Context, authorization string) (authn.Identity, error) {
	f.calls++
	if f.err != nil {
		return authn.Identity{}, f.err
	}
	if authorization == "" {
		return authn.Identity{}, authn.ErrMissingCredential
	}
	return f.identity, nil
}

type fakeStore struct {
	clients    map[string]store.ClientRecord
	ownsClient bool
	mirrors    []store.OrderRecord
	audits     []string
}

func (f *fakeStore) GetClientByExternalID(ctx context.Context, clientID string) (store.ClientRecord, error) {
	rec, ok := f.clients[clientID]
	if !ok {
		return store.ClientRecord{}, store.ErrClientNotFound
	}
	return rec, nil
}

func (f *fakeStore) UserOwnsClient(ctx context.Context, userID string) (bool, error) {
	return f.ownsClient, nil
}

func (f *fakeStore) InsertOrderMirror(ctx context.Context, rec store.OrderRecord) error {
	f.mirrors = append(f.mirrors, rec)
	return nil
}

func (f *fakeStore) RecordAuditEvent(ctx context.Context, eventType, userID, clientID string, payload []byte) error {
	f.audits = append(f.audits, eventType)
	return nil
}

type fakeUpstream struct {
	status     int
	body       []byte
	err        error
	calls      int
	lastMethod string
	lastPath   string
	lastBody   []byte
}

func (f *fakeUpstream) Do(ctx context.Context, method, path string, body []byte) (upstream.Response, error) {
	f.calls++
	f.lastMethod = method
	f.lastPath = path
	f.lastBody = body
	if f.err != nil {
		return upstream.Response{}, f.err
	}
	return upstream.Response{Status: f.status, Body: f.body}, nil
}

type fakeCache struct {
	data map[string][]byte
	sets int
}

func (f *fakeCache) Get(ctx context.Context, key string) []byte { return f.data[key] }
func (f *fakeCache) Set(ctx context.Context, key string, body []byte) {
	f.sets++
	f.data[key] = body
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(auth *fakeAuth, st *fakeStore, up *fakeUpstream, cache CatalogCache) *Handler {
	return New(auth, st, up, cache, "PRT", discardLogger())
}

func post(h *Handler, body string, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	h.HandleAction(rr, req)
	return rr
}

func errBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %s", rr.Body.String())
	}
	return out
}

func TestUnknownActionRejectedWithoutUpstream(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{}`)}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"drop-table"}`, "")
	if rr.Code != 400 {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := errBody(t, rr)
	if body["error"] != "Unknown action" || body["action"] != "drop-table" {
		t.Fatalf("unexpected body: %v", body)
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	h := newHandler(&fakeAuth{}, &fakeStore{}, &fakeUpstream{}, nil)
	rr := post(h, `{not json`, "")
	if rr.Code != 400 {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProtectedActionRequiresCredential(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{}`)}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-client","clientId":"cli_1"}`, "")
	if rr.Code != 401 {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if errBody(t, rr)["error"] != "Unauthorized: Missing authorization header" {
		t.Fatalf("unexpected error: %s", rr.Body.String())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestProtectedActionRejectsBadToken(t *testing.T) {
	auth := &fakeAuth{err: authn.ErrInvalidCredential}
	h := newHandler(auth, &fakeStore{}, &fakeUpstream{}, nil)

	rr := post(h, `{"action":"get-client","clientId":"cli_1"}`, "bogus")
	if rr.Code != 401 {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if errBody(t, rr)["error"] != "Unauthorized: Invalid authentication token" {
		t.Fatalf("unexpected error: %s", rr.Body.String())
	}
}

func TestOwnershipMismatchForbidden(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{clients: map[string]store.ClientRecord{
		"cli_1": {ClientID: "cli_1", UserID: "usr_other"},
	}}
	up := &fakeUpstream{status: 200, body: []byte(`{}`)}
	h := newHandler(auth, st, up, nil)

	rr := post(h, `{"action":"get-client","clientId":"cli_1"}`, "tok")
	if rr.Code != 403 {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if errBody(t, rr)["error"] != "Forbidden: You do not own this resource" {
		t.Fatalf("unexpected error: %s", rr.Body.String())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call on ownership failure")
	}
	if len(st.audits) != 1 || st.audits[0] != "OWNERSHIP_DENIED" {
		t.Fatalf("expected OWNERSHIP_DENIED audit event, got %v", st.audits)
	}
}

func TestOwnershipMissingRecordNotFound(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	h := newHandler(auth, &fakeStore{clients: map[string]store.ClientRecord{}}, &fakeUpstream{}, nil)

	rr := post(h, `{"action":"update-client","clientId":"cli_missing","data":{"name":"x"}}`, "tok")
	if rr.Code != 404 {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOwnershipReadsClientIDFromData(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{clients: map[string]store.ClientRecord{
		"cli_1": {ClientID: "cli_1", UserID: "usr_other"},
	}}
	h := newHandler(auth, st, &fakeUpstream{}, nil)

	rr := post(h, `{"action":"create-cart","data":{"clientId":"cli_1"}}`, "tok")
	if rr.Code != 403 {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCreateClientConflict(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{ownsClient: true}
	up := &fakeUpstream{status: 201, body: []byte(`{}`)}
	h := newHandler(auth, st, up, nil)

	rr := post(h, `{"action":"create-client","data":{"name":"x"}}`, "tok")
	if rr.Code != 409 {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if errBody(t, rr)["error"] != "Client record already exists for this user" {
		t.Fatalf("unexpected error: %s", rr.Body.String())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call on conflict")
	}
}

func TestCreateClientForwardsWhenFresh(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	up := &fakeUpstream{status: 201, body: []byte(`{"data":{"clientId":"cli_new"}}`)}
	h := newHandler(auth, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"create-client","data":{"name":"x"}}`, "tok")
	if rr.Code != 201 {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if up.lastMethod != "POST" || up.lastPath != "/clients" {
		t.Fatalf("unexpected upstream route: %s %s", up.lastMethod, up.lastPath)
	}
}

func TestCreateOrderBlockedWhenApprovalPending(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{clients: map[string]store.ClientRecord{
		"abc": {ClientID: "abc", UserID: "usr_caller", IsKycVerified: true, AdminApproval: store.ApprovalPending},
	}}
	up := &fakeUpstream{status: 201, body: []byte(`{}`)}
	h := newHandler(auth, st, up, nil)

	rr := post(h, `{"action":"create-order","clientId":"abc","data":{"clientId":"abc"}}`, "tok")
	if rr.Code != 403 {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if errBody(t, rr)["error"] != "Medical verification required before placing orders" {
		t.Fatalf("unexpected error: %s", rr.Body.String())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream order on blocked client")
	}
	if len(st.audits) != 1 || st.audits[0] != "ORDER_BLOCKED" {
		t.Fatalf("expected ORDER_BLOCKED audit event, got %v", st.audits)
	}
}

func TestCreateOrderBlockedWithoutKyc(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{clients: map[string]store.ClientRecord{
		"abc": {ClientID: "abc", UserID: "usr_caller", IsKycVerified: false, AdminApproval: store.ApprovalVerified},
	}}
	up := &fakeUpstream{status: 201, body: []byte(`{}`)}
	h := newHandler(auth, st, up, nil)

	rr := post(h, `{"action":"create-order","clientId":"abc"}`, "tok")
	if rr.Code != 403 {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestCreateOrderEligibleForwardsAndMirrors(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	st := &fakeStore{clients: map[string]store.ClientRecord{
		"abc": {ClientID: "abc", UserID: "usr_caller", IsKycVerified: true, AdminApproval: store.ApprovalVerified},
	}}
	up := &fakeUpstream{status: 201, body: []byte(`{"data":{"orderId":"ord_9"}}`)}
	h := newHandler(auth, st, up, nil)

	rr := post(h, `{"action":"create-order","clientId":"abc","data":{"clientId":"abc","items":[]}}`, "tok")
	if rr.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if up.calls != 1 || up.lastPath != "/orders" {
		t.Fatalf("expected one upstream order call, got %d to %s", up.calls, up.lastPath)
	}
	if len(st.mirrors) != 1 {
		t.Fatalf("expected one order mirror, got %d", len(st.mirrors))
	}
	m := st.mirrors[0]
	if m.OrderID != "ord_9" || m.UserID != "usr_caller" || m.Status != "PENDING" {
		t.Fatalf("unexpected mirror: %+v", m)
	}
}

func TestPublicActionNeedsNoCredential(t *testing.T) {
	auth := &fakeAuth{}
	up := &fakeUpstream{status: 200, body: []byte(`{"data":[{"strainId":"str_1"}]}`)}
	h := newHandler(auth, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-strains","countryCode":"ZAF"}`, "")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if auth.calls != 0 {
		t.Fatalf("expected no authentication for public action")
	}
	if up.lastPath != "/strains?countryCode=ZAF" {
		t.Fatalf("unexpected path: %s", up.lastPath)
	}
	if rr.Body.String() != `{"data":[{"strainId":"str_1"}]}` {
		t.Fatalf("expected pass-through body, got %s", rr.Body.String())
	}
}

func TestRegionResolvesToCountry(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{"data":[]}`)}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-strains","region":"za"}`, "")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if up.lastPath != "/strains?countryCode=ZAF" {
		t.Fatalf("expected region resolution to ZAF, got %s", up.lastPath)
	}
}

func TestUnknownRegionFallsBackToDefault(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{"data":[]}`)}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-strains","region":"xx"}`, "")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if up.lastPath != "/strains?countryCode=PRT" {
		t.Fatalf("expected default country, got %s", up.lastPath)
	}
}

func TestCatalogCacheHitSkipsUpstream(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{"data":["fresh"]}`)}
	cache := &fakeCache{data: map[string][]byte{
		"catalog:/strains?countryCode=PRT": []byte(`{"data":["cached"]}`),
	}}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, cache)

	rr := post(h, `{"action":"get-strains"}`, "")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != `{"data":["cached"]}` {
		t.Fatalf("expected cached body, got %s", rr.Body.String())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upstream call on cache hit")
	}
}

func TestCatalogCacheMissStoresResponse(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`{"data":["fresh"]}`)}
	cache := &fakeCache{data: map[string][]byte{}}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, cache)

	rr := post(h, `{"action":"get-strain","strainId":"str_1"}`, "")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if cache.sets != 1 {
		t.Fatalf("expected response to be cached")
	}
	if string(cache.data["catalog:/strains/str_1"]) != `{"data":["fresh"]}` {
		t.Fatalf("unexpected cache contents: %v", cache.data)
	}
}

func TestUpstreamTransportErrorIs502(t *testing.T) {
	up := &fakeUpstream{err: errors.New("connection refused")}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-all-strains"}`, "")
	if rr.Code != 502 {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestMalformedUpstreamBodyIs502(t *testing.T) {
	up := &fakeUpstream{status: 200, body: []byte(`<html>gateway timeout`)}
	h := newHandler(&fakeAuth{}, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"get-all-strains"}`, "")
	if rr.Code != 502 {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestUpstreamFailureStatusPassesThrough(t *testing.T) {
	auth := &fakeAuth{identity: authn.Identity{UserID: "usr_caller"}}
	up := &fakeUpstream{status: 422, body: []byte(`{"error":"invalid payload"}`)}
	h := newHandler(auth, &fakeStore{}, up, nil)

	rr := post(h, `{"action":"create-payment","data":{}}`, "tok")
	if rr.Code != 422 {
		t.Fatalf("expected 422 pass-through, got %d", rr.Code)
	}
	if rr.Body.String() != `{"error":"invalid payload"}` {
		t.Fatalf("expected upstream body, got %s", rr.Body.String())
	}
}

func TestExtractOrderID(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"data":{"orderId":"ord_1"}}`, "ord_1"},
		{`{"data":{"id":"ord_2"}}`, "ord_2"},
		{`{"orderId":"ord_3"}`, "ord_3"},
		{`{"id":"ord_4"}`, "ord_4"},
		{`{"data":{}}`, ""},
		{`not json`, ""},
	}
	for _, c := range cases {
		if got := extractOrderID([]byte(c.body)); got != c.want {
			t.Fatalf("extractOrderID(%s) = %q, want %q", c.body, got, c.want)
		}
	}
}
