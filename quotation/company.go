package quotation

import (
	"context"
	"strings"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// Company is the issuing company's profile.
type Company struct {
	Name               string `json:"company_name" yaml:"company_name"`
	LogoURL            string `json:"company_logo_url,omitempty" yaml:"company_logo_url,omitempty"`
	Address            string `json:"address" yaml:"address"`
	Phone              string `json:"phone" yaml:"phone"`
	Email              string `json:"email" yaml:"email"`
	Website            string `json:"website" yaml:"website"`
	RegistrationNumber string `json:"registration_number,omitempty" yaml:"registration_number,omitempty"`
	TaxID              string `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
}

// DefaultCompany returns the profile used when none is configured.
func DefaultCompany() Company {
	return Company{
		Name:               "ProQuote Electrical Ltd",
		Address:            "123 Electric Avenue, Tech City, TC 12345",
		Phone:              "+1 (555) 123-4567",
		Email:              "info@proquote.com",
		Website:            "www.proquote.com",
		RegistrationNumber: "REG-2024-001",
		TaxID:              "TAX-123456789",
	}
}

// apply overrides non-empty fields from a company_profile payload.
func (c Company) apply(overrides map[string]any) Company {
	fields := map[string]*string{
		"company_name":        &c.Name,
		"company_logo_url":    &c.LogoURL,
		"address":             &c.Address,
		"phone":               &c.Phone,
		"email":               &c.Email,
		"website":             &c.Website,
		"registration_number": &c.RegistrationNumber,
		"tax_id":              &c.TaxID,
	}
	for key, field := range fields {
		if v := str(overrides, key); v != "" {
			*field = v
		}
	}
	return c
}

func (c Company) section() map[string]any {
	section := map[string]any{
		"name": c.Name,
		"contact": map[string]any{
			"address": c.Address,
			"phone":   c.Phone,
			"email":   c.Email,
			"website": c.Website,
		},
		"legal": map[string]any{
			"registration_number": c.RegistrationNumber,
			"tax_id":              c.TaxID,
		},
		"display_text": c.displayText(),
	}
	if c.LogoURL != "" {
		section["logo_url"] = c.LogoURL
	}
	return section
}

func (c Company) displayText() string {
	lines := []string{
		c.Name,
		c.Address,
		"Phone: " + c.Phone,
		"Email: " + c.Email,
		"Website: " + c.Website,
	}
	if c.RegistrationNumber != "" {
		lines = append(lines, "Reg. No: "+c.RegistrationNumber)
	}
	if c.TaxID != "" {
		lines = append(lines, "Tax ID: "+c.TaxID)
	}
	return strings.Join(lines, "\n")
}

// NewCompanyInfo returns the producer that writes the company section.
func NewCompanyInfo(opts Options) producer.Producer {
	opts = opts.withDefaults()
	return producer.New(producer.Contract{
		Name:   CompanyInfo,
		Writes: []string{"company"},
	}, func(ctx context.Context, in producer.Input) (document.Update, error) {
		company := opts.Company
		if overrides, ok := in.Payload["company_profile"].(map[string]any); ok {
			company = company.apply(overrides)
		}
		return document.Update{"company": company.section()}, nil
	})
}
