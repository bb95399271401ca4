// Package report renders the downloadable impact-analysis PDF attached to a
// submission.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/calc"
)

// ContactInfo is the slice of the form that appears on the report.
type ContactInfo struct {
	Company   string
	FirstName string
	LastName  string
	Email     string
}

// Renderer builds impact report PDFs.
type Renderer struct{}

// NewRenderer returns a Renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// RenderImpactReport produces a one-page letter-size PDF summarizing the
// calculated results for a contact.
func (re *Renderer) RenderImpactReport(contact ContactInfo, res calc.Result) ([]byte, error) {
	if res.Financial == nil {
		return nil, fmt.Errorf("impact report requires a financial block")
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(50, 50, 50)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 30, "Impact Analysis", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(102, 102, 102)
	prepared := fmt.Sprintf("Prepared for %s %s, %s", contact.FirstName, contact.LastName, contact.Company)
	pdf.CellFormat(0, 18, prepared, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 16, time.Now().Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(20)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(59, 130, 246)
		pdf.CellFormat(0, 22, title, "", 1, "L", false, 0, "")
		pdf.SetDrawColor(229, 231, 235)
		x, y := pdf.GetX(), pdf.GetY()
		pdf.Line(x, y, x+512, y)
		pdf.Ln(6)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(51, 51, 51)
		pdf.CellFormat(340, 18, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 18, value, "", 1, "R", false, 0, "")
	}

	section("Population")
	row("Estimated plan members", humanize.Comma(res.Members))
	row("Members with a prescription", humanize.Comma(res.WithRx))
	row("Members with an opioid prescription", humanize.Comma(res.WithORx))
	if res.UsedCountyRate && res.CountyRatePer100 != nil {
		row("County opioid prescription rate", fmt.Sprintf("%.1f per 100", *res.CountyRatePer100))
	}
	pdf.Ln(12)

	section("Risk")
	row("Members at risk", humanize.Comma(res.AtRisk))
	row("Prescribers outside CDC guidelines", humanize.Comma(res.Prescribers))
	pdf.Ln(12)

	section("Financial Impact")
	row("Cost per member with an opioid Rx", dollars(res.CostPerMemberORx))
	row("Cost once care-managed", dollars(res.AvgCareManagedCost))
	row("Savings per managed member", dollars(res.SavingsPerMember))
	row("Estimated financial impact", dollars(res.FinancialImpact))
	row("Targeted savings", dollars(res.TargetedSavings))
	row("Targeted savings percentage", fmt.Sprintf("%d%%", res.TargetedSavingsPercent))

	pdf.Ln(24)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.MultiCell(0, 12, "Figures are estimates derived from national prescription rates and, where available, county-level prescribing data. They are intended as a starting point for a conversation, not an actuarial projection.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func dollars(v int64) string {
	return "$" + humanize.Comma(v)
}
