package quotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// sequence numbers quotations per issue day, starting at 1.
type sequence struct {
	mu  sync.Mutex
	day string
	n   int
}

func (s *sequence) next(day string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.day != day {
		s.day = day
		s.n = 0
	}
	s.n++
	return s.n
}

// QuoteNumber formats a quotation number as QT-YYYYMMDD-NNNN.
func QuoteNumber(date time.Time, seq int) string {
	return fmt.Sprintf("QT-%s-%04d", date.Format("20060102"), seq)
}

// NewHeader returns the critical producer that numbers the quotation and
// dates it. It fails validation when the company section carries no name.
func NewHeader(opts Options) producer.Producer {
	opts = opts.withDefaults()
	seq := &sequence{}

	return producer.New(producer.Contract{
		Name:     Header,
		Reads:    []string{"company", ClientName},
		Writes:   []string{"header"},
		Critical: true,
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		company, _ := in.Snapshot.Get("company")
		section, _ := company.(map[string]any)
		companyName := str(section, "name")
		if companyName == "" {
			return nil, fault.Validation("missing company name")
		}

		clientName, _ := in.Snapshot.String(ClientName)
		preparedBy := str(in.Payload, "prepared_by")
		if preparedBy == "" {
			preparedBy = opts.PreparedBy
		}

		issued := opts.Now()
		days := validityDays(in.Payload, opts.ValidityDays)

		header := map[string]any{
			"quote_number":  QuoteNumber(issued, seq.next(issued.Format("20060102"))),
			"company_name":  companyName,
			"client_name":   clientName,
			"quote_date":    issued.Format(time.RFC3339),
			"valid_until":   issued.AddDate(0, 0, days).Format(time.RFC3339),
			"validity_days": days,
			"prepared_by":   preparedBy,
			"status":        "draft",
		}
		for _, key := range []string{"client_contact", "project_name"} {
			if v := str(in.Payload, key); v != "" {
				header[key] = v
			}
		}

		return document.Update{"header": header}, nil
	})
}
