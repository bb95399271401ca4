package calc

import "fmt"

// Math holds the rate constants driving the pipeline. Field tags match the
// configuration endpoint payload consumed by the widget.
type Math struct {
	AvgDependentsPerEmployee float64 `json:"avg_dependents_per_employee"`
	RxRate                   float64 `json:"rx_rate"`
	OpioidRxRate             float64 `json:"opioid_rx_rate"`
	AtRiskRate               float64 `json:"at_risk_rate"`
	PrescriberNonCDCRate     float64 `json:"prescriber_non_cdc_rate"`
	AvgMedClaimUSD           int64   `json:"avg_med_claim_usd"`
}

// Config is the versioned per-variant form configuration. Labels are
// display-only; Math is the calculation contract.
type Config struct {
	Version string            `json:"version"`
	Form    Variant           `json:"form"`
	Labels  map[string]string `json:"labels"`
	Math    Math              `json:"math"`
}

// Default builds the configuration served for the given version and variant.
// Constructed fresh per request from static constants; there is no stored
// configuration.
func Default(version string, form Variant) Config {
	return Config{
		Version: version,
		Form:    form,
		Labels: map[string]string{
			"impact_title":    "Impact Analysis",
			"community_title": "Return-on-Community",
		},
		Math: Math{
			AvgDependentsPerEmployee: 2.5,
			RxRate:                   0.5,
			OpioidRxRate:             0.2,
			AtRiskRate:               0.3,
			PrescriberNonCDCRate:     0.9,
			AvgMedClaimUSD:           4000,
		},
	}
}

// Validate rejects rate constants outside [0,1] and non-positive
// multipliers. A failing Math is a configuration error, not user error.
func (m Math) Validate() error {
	rates := map[string]float64{
		"rx_rate":                 m.RxRate,
		"opioid_rx_rate":          m.OpioidRxRate,
		"at_risk_rate":            m.AtRiskRate,
		"prescriber_non_cdc_rate": m.PrescriberNonCDCRate,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}
	if m.AvgDependentsPerEmployee <= 0 {
		return fmt.Errorf("avg_dependents_per_employee must be positive, got %v", m.AvgDependentsPerEmployee)
	}
	if m.AvgMedClaimUSD <= 0 {
		return fmt.Errorf("avg_med_claim_usd must be positive, got %v", m.AvgMedClaimUSD)
	}
	return nil
}
