// Package regions holds the static regional content table: which markets the
// brand operates in, their currencies, regulators and indicative pricing.
package regions

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownRegion = errors.New("unknown region")

type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

type Pricing struct {
	Consultation decimal.Decimal `json:"consultation"`
	TreatmentMin decimal.Decimal `json:"treatment_min"`
	TreatmentMax decimal.Decimal `json:"treatment_max"`
}

type Region struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	CountryCode    string   `json:"country_code"` // ISO-3166 alpha-3, as the upstream expects
	Language       string   `json:"language"`
	Currency       Currency `json:"currency"`
	RegulatoryBody string   `json:"regulatory_body"`
	Pricing        Pricing  `json:"pricing"`
}

var table = map[string]Region{
	"za": {
		Code:           "za",
		Name:           "South Africa",
		CountryCode:    "ZAF",
		Language:       "English",
		Currency:       Currency{Code: "ZAR", Symbol: "R"},
		RegulatoryBody: "SAHPRA",
		Pricing: Pricing{
			Consultation: decimal.NewFromInt(2500),
			TreatmentMin: decimal.NewFromInt(4500),
			TreatmentMax: decimal.NewFromInt(8000),
		},
	},
	"pt": {
		Code:           "pt",
		Name:           "Portugal",
		CountryCode:    "PRT",
		Language:       "Portuguese",
		Currency:       Currency{Code: "EUR", Symbol: "€"},
		RegulatoryBody: "INFARMED",
		Pricing: Pricing{
			Consultation: decimal.NewFromInt(150),
			TreatmentMin: decimal.NewFromInt(250),
			TreatmentMax: decimal.NewFromInt(450),
		},
	},
	"gb": {
		Code:           "gb",
		Name:           "United Kingdom",
		CountryCode:    "GBR",
		Language:       "English",
		Currency:       Currency{Code: "GBP", Symbol: "£"},
		RegulatoryBody: "CQC / MHRA",
		Pricing: Pricing{
			Consultation: decimal.NewFromInt(150),
			TreatmentMin: decimal.NewFromInt(200),
			TreatmentMax: decimal.NewFromInt(400),
		},
	},
	"th": {
		Code:           "th",
		Name:           "Thailand",
		CountryCode:    "THA",
		Language:       "Thai",
		Currency:       Currency{Code: "THB", Symbol: "฿"},
		RegulatoryBody: "Thai FDA",
		Pricing: Pricing{
			Consultation: decimal.NewFromInt(3000),
			TreatmentMin: decimal.NewFromInt(5000),
			TreatmentMax: decimal.NewFromInt(10000),
		},
	},
}

// Resolve returns the region for a two-letter market code.
func Resolve(code string) (Region, error) {
	r, ok := table[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Region{}, ErrUnknownRegion
	}
	return r, nil
}

// CountryFor maps a market code to the upstream countryCode, or "" when the
// market is unknown.
func CountryFor(code string) string {
	r, err := Resolve(code)
	if err != nil {
		return ""
	}
	return r.CountryCode
}

// Codes lists the supported market codes.
func Codes() []string {
	out := make([]string, 0, len(table))
	for code := range table {
		out = append(out, code)
	}
	return out
}
