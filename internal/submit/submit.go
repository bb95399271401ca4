// Package submit orchestrates a form submission: authoritative recompute,
// then a fan-out of best-effort side effects (report, CRM, recorders).
package submit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/calc"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/hubspot"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/report"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/spaces"
)

// FormInput is the raw form body as the widget posts it. Numeric fields stay
// strings here; whatever numbers the widget previewed are ignored and the
// pipeline is recomputed from these raw values.
type FormInput struct {
	Employees   string `json:"employees,omitempty"`
	PlanMembers string `json:"planMembers,omitempty"`
	Population  string `json:"population,omitempty"`
	Company     string `json:"company"`
	City        string `json:"city"`
	State       string `json:"state"`
	County      string `json:"county"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Title       string `json:"title"`
}

// Submission is the persisted record of one completed submission.
type Submission struct {
	FormType      calc.Variant `json:"formType"`
	WebsiteOrigin string       `json:"websiteUrl"`
	Form          FormInput    `json:"form"`
	Results       calc.Result  `json:"results"`
	DocumentURL   string       `json:"pdfUrl,omitempty"`
	SubmittedAt   time.Time    `json:"submittedAt"`
}

// Outcome is what the widget receives. Side-effect failures never appear
// here: if the recompute succeeded, the submission succeeded.
type Outcome struct {
	OK          bool        `json:"ok"`
	Results     calc.Result `json:"results"`
	DocumentURL string      `json:"pdfUrl,omitempty"`
}

// RateLookup resolves a county override rate.
type RateLookup interface {
	Lookup(state, county string) (float64, bool)
}

// CRM upserts a lead. The result value, not an error, carries failure.
type CRM interface {
	UpsertContact(ctx context.Context, email string, properties map[string]any) hubspot.Result
}

// Renderer builds the impact report document.
type Renderer interface {
	RenderImpactReport(contact report.ContactInfo, res calc.Result) ([]byte, error)
}

// Uploader stores a rendered document and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName, contentType string) (spaces.UploadResult, error)
}

// Recorder persists or forwards a completed submission.
type Recorder interface {
	Record(ctx context.Context, sub Submission) error
}

// Service wires the calculation engine to its collaborators. Nil
// collaborators mean "not configured" and are skipped with a log line.
type Service struct {
	Version   string
	Rates     RateLookup
	CRM       CRM
	Renderer  Renderer
	Uploader  Uploader
	Recorders []Recorder
}

// Submit recomputes the pipeline for the raw form input and fires the side
// effects. The returned Outcome reflects only the computation; a submission
// whose CRM call, upload, or persistence failed still reports success, and
// those failures are logged instead.
func (s *Service) Submit(ctx context.Context, variant calc.Variant, form FormInput, websiteOrigin string) Outcome {
	cfg := calc.Default(s.Version, variant)

	var countyRate *float64
	if rate, ok := s.Rates.Lookup(form.State, form.County); ok {
		countyRate = &rate
	}

	in := calc.Input{
		Employees:   calc.CoerceNumber(form.Employees),
		PlanMembers: calc.CoerceNumber(form.PlanMembers),
		Population:  calc.CoerceNumber(form.Population),
	}
	results := calc.Compute(variant, in, cfg, countyRate)

	var documentURL string
	if variant == calc.VariantImpact {
		documentURL = s.renderAndUpload(ctx, form, results)
	}

	sub := Submission{
		FormType:      variant,
		WebsiteOrigin: websiteOrigin,
		Form:          form,
		Results:       results,
		DocumentURL:   documentURL,
		SubmittedAt:   time.Now().UTC(),
	}
	s.fanOut(ctx, sub)

	return Outcome{OK: true, Results: results, DocumentURL: documentURL}
}

// renderAndUpload produces the impact PDF and uploads it, best-effort. An
// empty return means no document; the submission proceeds regardless.
func (s *Service) renderAndUpload(ctx context.Context, form FormInput, results calc.Result) string {
	if s.Renderer == nil || s.Uploader == nil {
		log.Print("submit: report rendering not configured, skipping")
		return ""
	}

	data, err := s.Renderer.RenderImpactReport(report.ContactInfo{
		Company:   form.Company,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
	}, results)
	if err != nil {
		log.Printf("submit: report render failed (submission unaffected): %v", err)
		return ""
	}

	fileName := fmt.Sprintf("impact-report-%s.pdf", form.Company)
	uploaded, err := s.Uploader.Upload(ctx, data, fileName, "application/pdf")
	if err != nil {
		log.Printf("submit: report upload failed (submission unaffected): %v", err)
		return ""
	}
	return uploaded.URL
}

// sideEffect is one independent best-effort task. Each runs to completion or
// failure on its own; failures are logged, never propagated.
type sideEffect struct {
	name string
	run  func() error
}

func (s *Service) fanOut(ctx context.Context, sub Submission) {
	effects := []sideEffect{
		{"crm upsert", func() error { return s.upsertLead(ctx, sub) }},
	}
	for i, rec := range s.Recorders {
		rec := rec
		effects = append(effects, sideEffect{
			name: fmt.Sprintf("recorder %d", i),
			run:  func() error { return rec.Record(ctx, sub) },
		})
	}

	for _, eff := range effects {
		if err := eff.run(); err != nil {
			log.Printf("submit: %s failed (submission unaffected): %v", eff.name, err)
		}
	}
}

func (s *Service) upsertLead(ctx context.Context, sub Submission) error {
	if s.CRM == nil {
		log.Print("submit: crm not configured, skipping")
		return nil
	}
	res := s.CRM.UpsertContact(ctx, sub.Form.Email, contactProperties(sub))
	if res.Err != nil {
		return res.Err
	}
	if !res.Success {
		return fmt.Errorf("upsert did not succeed")
	}
	log.Printf("submit: crm contact %s processed", res.ContactID)
	return nil
}

// contactProperties flattens a submission into the CRM's contact property
// names. The calculator_* names are an external contract with existing CRM
// workflows; do not rename them here.
func contactProperties(sub Submission) map[string]any {
	form, results := sub.Form, sub.Results

	props := map[string]any{"email": form.Email}
	setIf := func(key, val string) {
		if val != "" {
			props[key] = val
		}
	}
	setIf("firstname", form.FirstName)
	setIf("lastname", form.LastName)
	setIf("phone", form.Phone)
	setIf("company", form.Company)
	setIf("city", form.City)
	setIf("state", form.State)
	setIf("jobtitle", form.Title)
	setIf("calculator_input_county", form.County)

	props["calculator_form_type"] = string(sub.FormType)
	switch sub.FormType {
	case calc.VariantImpact:
		setIf("calculator_input_number_of_employees", form.Employees)
		setIf("calculator_input_number_of_plan_members", form.PlanMembers)
	case calc.VariantCommunity:
		setIf("calculator_input_county_population", form.Population)
	}

	props["calculator_results_total_members"] = results.Members
	props["calculator_results_rx_count"] = results.WithRx
	props["calculator_results_orx_count"] = results.WithORx
	props["calculator_results_at_risk_count"] = results.AtRisk
	props["calculator_results_prescribers_identified"] = results.Prescribers
	props["calculator_input_orx_rate"] = results.OpioidRxRate
	if results.CountyRatePer100 != nil {
		props["calculator_input_county_rate_per_100"] = *results.CountyRatePer100
	}

	if results.Financial != nil {
		props["calculator_results_financial_impact"] = results.FinancialImpact
		props["calculator_results_targeted_savings"] = results.TargetedSavings
		props["calculator_results_targeted_savings_percentage"] = results.TargetedSavingsPercent
	}
	if sub.DocumentURL != "" {
		props["calculator_result_pdf_url"] = sub.DocumentURL
	}

	return props
}
