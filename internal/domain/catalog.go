package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString accepts a JSON string or number. Upstream services are not
// consistent about identifier and amount encodings.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// FlexList accepts a JSON array of strings, an array of objects carrying a
// "name" field, or a single comma separated string.
type FlexList []string

func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitCSV(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, elem := range raw {
			var named struct {
				Name string `json:"name"`
			}
			if len(elem) > 0 && elem[0] == '{' {
				if err := json.Unmarshal(elem, &named); err != nil {
					return err
				}
				if name := strings.TrimSpace(named.Name); name != "" {
					out = append(out, name)
				}
				continue
			}
			var s FlexString
			if err := json.Unmarshal(elem, &s); err != nil {
				return err
			}
			if name := strings.TrimSpace(s.String()); name != "" {
				out = append(out, name)
			}
		}
		*l = out
		return nil
	default:
		var s FlexString
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitCSV(s.String())
		return nil
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// RawDiscount is a record as served by the Discounts service.
type RawDiscount struct {
	ID                   FlexString `json:"id"`
	Name                 string     `json:"name"`
	Type                 string     `json:"type"`
	Discount             FlexString `json:"discount"`
	MinSpend             FlexString `json:"minSpend"`
	ApplicationType      string     `json:"application_type"`
	ApplicableProducts   FlexList   `json:"applicable_products"`
	ApplicableCategories FlexList   `json:"applicable_categories"`
	Status               string     `json:"status"`
}

// RawPromotion is a record as served by the Promotions service. Products is
// a comma separated list or the literal "all products".
type RawPromotion struct {
	ID              FlexString `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Value           FlexString `json:"value"`
	Products        FlexString `json:"products"`
	ApplicationType string     `json:"application_type"`
	Status          string     `json:"status"`
}

type CatalogSummary struct {
	Discounts  int `json:"discounts"`
	Promotions int `json:"promotions"`
}
