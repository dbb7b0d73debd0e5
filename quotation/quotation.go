// Package quotation provides the producers that assemble a commercial
// quotation: the company profile, a numbered header, priced line items and a
// footer with terms and signature block.
//
// Every producer writes one top-level document key:
//
//	company_info -> "company"
//	header       -> "header"   (reads company, client_name)
//	pricing      -> "pricing"
//	footer       -> "footer"
//
// Optional payload fields tune the output: "company_profile" overrides the
// company defaults, "prepared_by", "client_contact", "project_name" and
// "validity_days" feed the header and footer, and "items" lists the
// {sku, description, quantity} entries to price.
package quotation

import (
	"fmt"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// Producer names.
const (
	CompanyInfo = "company_info"
	Header      = "header"
	Pricing     = "pricing"
	Footer      = "footer"
)

// ClientName is the only input key every quotation job must provide.
const ClientName = "client_name"

// DefaultValidityDays is how long a quotation stays valid when neither the
// options nor the payload say otherwise.
const DefaultValidityDays = 30

// InputKeys returns the input keys the quotation producers read.
func InputKeys() []string {
	return []string{ClientName}
}

// InputSchema returns the JSON Schema submitted quotation inputs must match.
func InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{ClientName},
		"properties": map[string]any{
			ClientName:        map[string]any{"type": "string", "minLength": 1},
			"prepared_by":     map[string]any{"type": "string"},
			"client_contact":  map[string]any{"type": "string"},
			"project_name":    map[string]any{"type": "string"},
			"validity_days":   map[string]any{"type": "integer", "minimum": 1},
			"company_profile": map[string]any{"type": "object"},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"sku", "quantity"},
					"properties": map[string]any{
						"sku":         map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"quantity":    map[string]any{"type": "number", "exclusiveMinimum": 0},
					},
				},
			},
		},
	}
}

// Options configures the quotation producers.
type Options struct {
	Company      Company
	PreparedBy   string
	ValidityDays int

	// Prices looks up unit prices for the pricing producer. A nil source
	// prices every item at zero.
	Prices   PriceSource
	Currency string
	TaxRate  float64

	// Now returns the issue time of a quotation. Defaults to time.Now in UTC.
	Now func() time.Time
}

// DefaultOptions returns the built-in company profile and a 30 day validity.
func DefaultOptions() Options {
	return Options{
		Company:      DefaultCompany(),
		PreparedBy:   "Sales Team",
		ValidityDays: DefaultValidityDays,
		Currency:     "USD",
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Company.Name == "" {
		o.Company = d.Company
	}
	if o.PreparedBy == "" {
		o.PreparedBy = d.PreparedBy
	}
	if o.ValidityDays < 1 {
		o.ValidityDays = d.ValidityDays
	}
	if o.Currency == "" {
		o.Currency = d.Currency
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Producers returns the quotation producers built from opts.
func Producers(opts Options) []producer.Producer {
	opts = opts.withDefaults()
	return []producer.Producer{
		NewCompanyInfo(opts),
		NewHeader(opts),
		NewPricing(opts),
		NewFooter(opts),
	}
}

// Register adds every quotation producer to registry.
func Register(registry *producer.Registry, opts Options) error {
	for _, p := range Producers(opts) {
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p.Contract().Name, err)
		}
	}
	return nil
}

func validityDays(payload map[string]any, fallback int) int {
	if n, ok := number(payload["validity_days"]); ok && n >= 1 {
		return int(n)
	}
	return fallback
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
