package quotation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

const defaultTerms = `Terms & Conditions:
1. This quotation is valid for {validity_days} days from the date of issue.
2. Prices are subject to change based on material availability.
3. Payment terms: 50% deposit upon acceptance, 50% upon completion.
4. All work will be performed in accordance with NEC 2023 standards.
5. Warranty: 1 year on workmanship, manufacturer's warranty on materials.`

const defaultDisclaimer = `Disclaimer:
This quotation is based on the information provided and site conditions observed.
Any changes to scope, specifications, or unforeseen conditions may result in
additional charges. Permits and inspection fees are not included unless specified.`

func defaultSignatureBlock() map[string]any {
	return map[string]any{
		"acceptance_text":   "By signing below, you accept this quotation and agree to the terms and conditions.",
		"client_signature":  "Client Signature: _______________________  Date: ___________",
		"company_signature": "Company Representative: _______________________  Date: ___________",
	}
}

// Terms renders the terms and conditions for a validity period.
func Terms(validityDays int) string {
	return strings.ReplaceAll(defaultTerms, "{validity_days}", strconv.Itoa(validityDays))
}

// NewFooter returns the producer that writes terms, disclaimer and the
// signature block. Payload "custom_terms" and "custom_disclaimer" replace the
// defaults; "{validity_days}" in custom terms is substituted as well.
func NewFooter(opts Options) producer.Producer {
	opts = opts.withDefaults()

	return producer.New(producer.Contract{
		Name:   Footer,
		Writes: []string{"footer"},
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		days := validityDays(in.Payload, opts.ValidityDays)

		terms := Terms(days)
		if custom := str(in.Payload, "custom_terms"); custom != "" {
			terms = strings.ReplaceAll(custom, "{validity_days}", strconv.Itoa(days))
		}
		disclaimer := defaultDisclaimer
		if custom := str(in.Payload, "custom_disclaimer"); custom != "" {
			disclaimer = custom
		}

		return document.Update{"footer": map[string]any{
			"terms_and_conditions": terms,
			"disclaimer":           disclaimer,
			"signature_block":      defaultSignatureBlock(),
			"contact_info": map[string]any{
				"phone":   opts.Company.Phone,
				"email":   opts.Company.Email,
				"website": opts.Company.Website,
			},
			"page_template": "Page {page_num} of {total_pages}",
			"generated_at":  opts.Now().Format(time.RFC3339),
		}}, nil
	})
}
