// Package actions maps incoming action names to their access category and
// upstream route. Policy changes are made by editing the tables below.
package actions

import (
	"encoding/json"
	"net/url"
)

// Category says whether an action needs an authenticated caller.
type Category int

const (
	Unknown Category = iota
	Public
	Protected
)

// Request is one inbound action call. It lives for the duration of a single
// HTTP request.
type Request struct {
	Action      string          `json:"action"`
	ClientID    string          `json:"clientId,omitempty"`
	StrainID    string          `json:"strainId,omitempty"`
	OrderID     string          `json:"orderId,omitempty"`
	CartID      string          `json:"cartId,omitempty"`
	PaymentID   string          `json:"paymentId,omitempty"`
	CountryCode string          `json:"countryCode,omitempty"`
	Region      string          `json:"region,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// TargetClientID returns the client identifier the request refers to, looking
// first at the top level and then inside the data payload.
func (r Request) TargetClientID() string {
	if r.ClientID != "" {
		return r.ClientID
	}
	var inner struct {
		ClientID string `json:"clientId"`
	}
	if len(r.Data) > 0 {
		_ = json.Unmarshal(r.Data, &inner)
	}
	return inner.ClientID
}

type route struct {
	method  string
	path    func(Request, string) string
	hasBody bool
}

var publicActions = map[string]route{
	"get-strains": {method: "GET", path: func(r Request, defaultCountry string) string {
		country := r.CountryCode
		if country == "" {
			country = defaultCountry
		}
		return "/strains?countryCode=" + url.QueryEscape(country)
	}},
	"get-all-strains": {method: "GET", path: func(Request, string) string { return "/strains" }},
	"get-strain": {method: "GET", path: func(r Request, _ string) string {
		return "/strains/" + url.PathEscape(r.StrainID)
	}},
}

var protectedActions = map[string]route{
	"create-client": {method: "POST", path: func(Request, string) string { return "/clients" }, hasBody: true},
	"get-client": {method: "GET", path: func(r Request, _ string) string {
		return "/clients/" + url.PathEscape(r.ClientID)
	}},
	"update-client": {method: "PUT", path: func(r Request, _ string) string {
		return "/clients/" + url.PathEscape(r.ClientID)
	}, hasBody: true},

	"create-cart": {method: "POST", path: func(Request, string) string { return "/carts" }, hasBody: true},
	"update-cart": {method: "PUT", path: func(r Request, _ string) string {
		return "/carts/" + url.PathEscape(r.CartID)
	}, hasBody: true},
	"get-cart": {method: "GET", path: func(r Request, _ string) string {
		return "/carts/" + url.PathEscape(r.CartID)
	}},

	"create-order": {method: "POST", path: func(Request, string) string { return "/orders" }, hasBody: true},
	"get-order": {method: "GET", path: func(r Request, _ string) string {
		return "/orders/" + url.PathEscape(r.OrderID)
	}},
	"update-order": {method: "PATCH", path: func(r Request, _ string) string {
		return "/orders/" + url.PathEscape(r.OrderID)
	}, hasBody: true},
	"get-orders": {method: "GET", path: func(r Request, _ string) string {
		return "/orders?clientId=" + url.QueryEscape(r.ClientID)
	}},

	"create-payment": {method: "POST", path: func(Request, string) string { return "/payments" }, hasBody: true},
	"get-payment": {method: "GET", path: func(r Request, _ string) string {
		return "/payments/" + url.PathEscape(r.PaymentID)
	}},
}

// Actions whose target client record must belong to the caller.
var ownershipChecked = map[string]bool{
	"get-client":    true,
	"update-client": true,
	"get-orders":    true,
	"create-order":  true,
	"get-cart":      true,
	"update-cart":   true,
	"create-cart":   true,
}

// Classify places an action name into one of the three categories.
func Classify(action string) Category {
	if _, ok := publicActions[action]; ok {
		return Public
	}
	if _, ok := protectedActions[action]; ok {
		return Protected
	}
	return Unknown
}

// OwnershipChecked reports whether the action's target client must be owned
// by the caller.
func OwnershipChecked(action string) bool { return ownershipChecked[action] }

// Route resolves the upstream method, path and body for a classified action.
// The boolean is false for unknown actions.
func Route(r Request, defaultCountry string) (method, path string, body []byte, ok bool) {
	rt, found := publicActions[r.Action]
	if !found {
		rt, found = protectedActions[r.Action]
	}
	if !found {
		return "", "", nil, false
	}
	if rt.hasBody {
		body = r.Data
	}
	return rt.method, rt.path(r, defaultCountry), body, true
}
