package report

import (
	"bytes"
	"testing"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/calc"
)

func TestRenderImpactReportProducesPDF(t *testing.T) {
	cfg := calc.Default("dev", calc.VariantImpact)
	res := calc.Compute(calc.VariantImpact, calc.Input{Employees: 10000}, cfg, nil)

	data, err := NewRenderer().RenderImpactReport(ContactInfo{
		Company:   "Acme Health",
		FirstName: "Dana",
		LastName:  "Rivers",
		Email:     "dana@acme.example.com",
	}, res)
	if err != nil {
		t.Fatalf("RenderImpactReport returned error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF, starts with %q", data[:min(8, len(data))])
	}
	if len(data) < 1000 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestRenderImpactReportRequiresFinancialBlock(t *testing.T) {
	cfg := calc.Default("dev", calc.VariantCommunity)
	res := calc.Compute(calc.VariantCommunity, calc.Input{Population: 1000}, cfg, nil)

	if _, err := NewRenderer().RenderImpactReport(ContactInfo{}, res); err == nil {
		t.Fatal("community result without financial block should be rejected")
	}
}
