package quotation_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/scheduler"
	"github.com/tailored-agentic-units/quoteflow/quotation"
)

var issued = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testOptions() quotation.Options {
	opts := quotation.DefaultOptions()
	opts.Now = func() time.Time { return issued }
	opts.Prices = quotation.StaticPrices{"BRK-20A": 12.5, "CBL-14": 0.85}
	opts.TaxRate = 0.1
	return opts
}

func attempt(t *testing.T, p producer.Producer, values, payload map[string]any) (document.Update, error) {
	t.Helper()
	return p.Attempt(context.Background(), producer.Input{
		JobID:    "job-1",
		Attempt:  1,
		Snapshot: document.New(values).Snapshot(),
		Payload:  payload,
	})
}

func TestQuoteNumber(t *testing.T) {
	if got, want := quotation.QuoteNumber(issued, 7), "QT-20260314-0007"; got != want {
		t.Errorf("QuoteNumber = %q, want %q", got, want)
	}
}

func TestCompanyInfo(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{name: "defaults", payload: map[string]any{}, want: "ProQuote Electrical Ltd"},
		{
			name:    "profile override",
			payload: map[string]any{"company_profile": map[string]any{"company_name": "Spark & Co"}},
			want:    "Spark & Co",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := attempt(t, quotation.NewCompanyInfo(testOptions()), nil, tt.payload)
			if err != nil {
				t.Fatalf("Attempt failed: %v", err)
			}

			section := update["company"].(map[string]any)
			if section["name"] != tt.want {
				t.Errorf("name = %v, want %s", section["name"], tt.want)
			}
			if !strings.HasPrefix(section["display_text"].(string), tt.want+"\n") {
				t.Errorf("display_text = %q", section["display_text"])
			}
		})
	}
}

func TestHeader(t *testing.T) {
	p := quotation.NewHeader(testOptions())
	values := map[string]any{
		"client_name": "ABC Corp",
		"company":     map[string]any{"name": "ProQuote Electrical Ltd"},
	}

	first, err := attempt(t, p, values, map[string]any{"project_name": "Warehouse retrofit"})
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	header := first["header"].(map[string]any)

	checks := map[string]any{
		"quote_number": "QT-20260314-0001",
		"client_name":  "ABC Corp",
		"company_name": "ProQuote Electrical Ltd",
		"valid_until":  "2026-04-13T09:30:00Z",
		"prepared_by":  "Sales Team",
		"project_name": "Warehouse retrofit",
		"status":       "draft",
	}
	for key, want := range checks {
		if header[key] != want {
			t.Errorf("%s = %v, want %v", key, header[key], want)
		}
	}

	second, err := attempt(t, p, values, map[string]any{"validity_days": float64(7)})
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	header = second["header"].(map[string]any)
	if header["quote_number"] != "QT-20260314-0002" {
		t.Errorf("quote_number = %v, want sequence 2", header["quote_number"])
	}
	if header["valid_until"] != "2026-03-21T09:30:00Z" {
		t.Errorf("valid_until = %v, want 7 days after issue", header["valid_until"])
	}
}

func TestHeader_MissingCompanyName(t *testing.T) {
	_, err := attempt(t, quotation.NewHeader(testOptions()),
		map[string]any{"client_name": "ABC Corp", "company": map[string]any{}}, nil)

	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestFooter(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{name: "default validity", payload: map[string]any{}, want: "valid for 30 days"},
		{name: "payload validity", payload: map[string]any{"validity_days": 45}, want: "valid for 45 days"},
		{
			name:    "custom terms",
			payload: map[string]any{"custom_terms": "Net {validity_days}.", "validity_days": 15},
			want:    "Net 15.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := attempt(t, quotation.NewFooter(testOptions()), nil, tt.payload)
			if err != nil {
				t.Fatalf("Attempt failed: %v", err)
			}

			footer := update["footer"].(map[string]any)
			terms := footer["terms_and_conditions"].(string)
			if !strings.Contains(terms, tt.want) {
				t.Errorf("terms = %q, want to contain %q", terms, tt.want)
			}
			if _, ok := footer["signature_block"]; !ok {
				t.Error("footer missing signature_block")
			}
		})
	}
}

func TestPricing(t *testing.T) {
	payload := map[string]any{"items": []any{
		map[string]any{"sku": "BRK-20A", "description": "20A breaker", "quantity": float64(4)},
		map[string]any{"sku": "CBL-14", "quantity": float64(100)},
	}}

	update, err := attempt(t, quotation.NewPricing(testOptions()), nil, payload)
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}

	pricing := update["pricing"].(map[string]any)
	checks := map[string]float64{"subtotal": 135, "tax": 13.5, "total": 148.5}
	for key, want := range checks {
		if pricing[key] != want {
			t.Errorf("%s = %v, want %v", key, pricing[key], want)
		}
	}
	if lines := pricing["lines"].([]any); len(lines) != 2 {
		t.Errorf("lines = %d, want 2", len(lines))
	}
}

func TestPricing_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prices  quotation.PriceSource
		payload map[string]any
		want    error
	}{
		{
			name:    "unknown sku",
			prices:  quotation.StaticPrices{},
			payload: map[string]any{"items": []any{map[string]any{"sku": "X", "quantity": 1}}},
			want:    fault.ErrValidation,
		},
		{
			name:    "bad quantity",
			prices:  quotation.StaticPrices{"X": 1},
			payload: map[string]any{"items": []any{map[string]any{"sku": "X", "quantity": 0}}},
			want:    fault.ErrValidation,
		},
		{
			name: "source down",
			prices: quotation.PriceFunc(func(ctx context.Context, sku string) (float64, error) {
				return 0, errors.New("connection refused")
			}),
			payload: map[string]any{"items": []any{map[string]any{"sku": "X", "quantity": 1}}},
			want:    fault.ErrExternalService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.Prices = tt.prices

			_, err := attempt(t, quotation.NewPricing(opts), nil, tt.payload)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func newScheduler(t *testing.T, opts quotation.Options) *scheduler.Scheduler {
	t.Helper()

	registry := producer.NewRegistry()
	if err := quotation.Register(registry, opts); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	cfg := config.DefaultSchedulerConfig()
	cfg.Observer = "noop"
	cfg.Retry = config.RetryConfig{
		InitialBackoff: config.Duration(time.Millisecond),
		MaxBackoff:     config.Duration(5 * time.Millisecond),
		Multiplier:     2,
	}

	s, err := scheduler.New(cfg, registry, quotation.InputKeys())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestQuotation_Completed(t *testing.T) {
	s := newScheduler(t, testOptions())

	j := job.New("job-1", map[string]any{
		"client_name": "ABC Corp",
		"items":       []any{map[string]any{"sku": "BRK-20A", "quantity": float64(2)}},
	})
	if err := s.Run(context.Background(), j); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	snap := j.Snapshot()

	if snap.Status != job.StatusCompleted {
		t.Fatalf("status = %s, want %s (errors %v)", snap.Status, job.StatusCompleted, snap.Errors)
	}
	for _, key := range []string{"company", "header", "pricing", "footer"} {
		if _, ok := snap.Document[key]; !ok {
			t.Errorf("document missing %q", key)
		}
	}
	if got := snap.Count(job.ProducerSucceeded); got != 4 {
		t.Errorf("succeeded = %d, want 4", got)
	}
}

func TestQuotation_PricingRetries(t *testing.T) {
	var calls atomic.Int32
	opts := testOptions()
	opts.Prices = quotation.PriceFunc(func(ctx context.Context, sku string) (float64, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("catalogue unavailable")
		}
		return 10, nil
	})
	s := newScheduler(t, opts)

	j := job.New("job-1", map[string]any{
		"client_name": "ABC Corp",
		"items":       []any{map[string]any{"sku": "LUM-LED", "quantity": float64(3)}},
	})
	if err := s.Run(context.Background(), j); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	snap := j.Snapshot()

	if snap.Status != job.StatusCompleted {
		t.Fatalf("status = %s, want %s", snap.Status, job.StatusCompleted)
	}
	rec, ok := snap.Record(quotation.Pricing)
	if !ok {
		t.Fatal("no pricing record")
	}
	if rec.Attempts != 3 || rec.Outcome != job.ProducerSucceeded {
		t.Errorf("pricing record = %+v, want 3 attempts and success", rec)
	}
}

func TestQuotation_HeaderFailureFailsJob(t *testing.T) {
	registry := producer.NewRegistry()
	if err := quotation.Register(registry, testOptions()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := registry.Replace(producer.New(producer.Contract{
		Name:   quotation.CompanyInfo,
		Writes: []string{"company"},
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		return document.Update{"company": map[string]any{}}, nil
	}))
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	cfg := config.DefaultSchedulerConfig()
	cfg.Observer = "noop"
	s, err := scheduler.New(cfg, registry, quotation.InputKeys())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	j := job.New("job-1", map[string]any{"client_name": "ABC Corp"})
	if err := s.Run(context.Background(), j); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	snap := j.Snapshot()

	if snap.Status != job.StatusFailed {
		t.Fatalf("status = %s, want %s", snap.Status, job.StatusFailed)
	}
	if _, ok := snap.Document["header"]; ok {
		t.Error("document has header after header failed")
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Producer != quotation.Header {
		t.Errorf("errors = %v, want one entry for header", snap.Errors)
	}
}
