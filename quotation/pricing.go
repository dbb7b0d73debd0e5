package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

var ErrUnknownSKU = errors.New("unknown sku")

// PriceSource looks up the unit price of a SKU. Implementations usually call
// a remote catalogue; transient failures should be returned as plain errors
// so the pricing producer reports them as retryable upstream failures.
type PriceSource interface {
	Price(ctx context.Context, sku string) (float64, error)
}

// PriceFunc adapts a function to PriceSource.
type PriceFunc func(ctx context.Context, sku string) (float64, error)

func (f PriceFunc) Price(ctx context.Context, sku string) (float64, error) {
	return f(ctx, sku)
}

// StaticPrices is a fixed price list.
type StaticPrices map[string]float64

func (p StaticPrices) Price(ctx context.Context, sku string) (float64, error) {
	price, ok := p[sku]
	if !ok {
		return 0, &fault.Failure{
			Kind:    fault.KindValidation,
			Message: "no price for sku " + sku,
			Err:     ErrUnknownSKU,
		}
	}
	return price, nil
}

// LineItem is one entry of the payload "items" list.
type LineItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
}

// NewPricing returns the retryable producer that prices the payload items.
// Errors from the price source that are not already classified are reported
// as upstream failures.
func NewPricing(opts Options) producer.Producer {
	opts = opts.withDefaults()

	return producer.New(producer.Contract{
		Name:        Pricing,
		Writes:      []string{"pricing"},
		Retryable:   true,
		MaxAttempts: 3,
		Timeout:     5 * time.Second,
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		items, err := lineItems(in.Payload)
		if err != nil {
			return nil, err
		}

		lines := make([]any, 0, len(items))
		var subtotal float64
		for _, item := range items {
			unit := 0.0
			if opts.Prices != nil {
				unit, err = opts.Prices.Price(ctx, item.SKU)
				if err != nil {
					return nil, classify(err)
				}
			}

			amount := round(unit * item.Quantity)
			subtotal += amount
			lines = append(lines, map[string]any{
				"sku":         item.SKU,
				"description": item.Description,
				"quantity":    item.Quantity,
				"unit_price":  unit,
				"amount":      amount,
			})
		}

		subtotal = round(subtotal)
		tax := round(subtotal * opts.TaxRate)

		return document.Update{"pricing": map[string]any{
			"currency": opts.Currency,
			"lines":    lines,
			"subtotal": subtotal,
			"tax_rate": opts.TaxRate,
			"tax":      tax,
			"total":    round(subtotal + tax),
		}}, nil
	})
}

func lineItems(payload map[string]any) ([]LineItem, error) {
	raw, ok := payload["items"]
	if !ok {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fault.Validation("items: %v", err)
	}
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fault.Validation("items must be a list of {sku, quantity}")
	}

	for _, item := range items {
		if item.SKU == "" || item.Quantity <= 0 {
			return nil, fault.Validation("items need a sku and a positive quantity")
		}
	}
	return items, nil
}

func classify(err error) error {
	var f *fault.Failure
	if errors.As(err, &f) {
		return err
	}
	return fault.External("price lookup failed", err)
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
