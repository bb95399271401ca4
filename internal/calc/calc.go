package calc

import (
	"math"
	"strconv"
	"strings"
)

// Variant selects which form flow a calculation serves.
type Variant string

const (
	VariantImpact    Variant = "impact"
	VariantCommunity Variant = "community"
)

// ParseVariant maps a route segment to a Variant.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantImpact:
		return VariantImpact, true
	case VariantCommunity:
		return VariantCommunity, true
	}
	return "", false
}

// Fixed financial constants of the impact pipeline. Per-case cost of an
// unmanaged opioid member, the net cost used for the headline impact figure,
// and the cost once care-managed.
const (
	CostPerMemberORx    int64 = 7500
	NetCostPerMemberORx int64 = 4000
	AvgCareManagedCost  int64 = 4500
	SavingsPerMember          = CostPerMemberORx - AvgCareManagedCost
)

// Input carries the numeric form fields after coercion. Exactly one of
// Employees/PlanMembers drives the impact variant; Population drives
// the community variant.
type Input struct {
	Employees   float64
	PlanMembers float64
	Population  float64
}

// CoerceNumber converts a raw form value to a non-negative number.
// Malformed, missing, and negative values all collapse to 0; coercion is
// the engine's whole validation policy.
func CoerceNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Financial is the impact-only financial block. It is embedded flat into
// Result JSON and absent entirely for community results.
type Financial struct {
	CostPerMemberORx       int64 `json:"costPerMemberORx"`
	NetCostPerMemberORx    int64 `json:"netCostPerMemberORx"`
	AvgCareManagedCost     int64 `json:"avgCareManagedCost"`
	SavingsPerMember       int64 `json:"savingsPerMember"`
	FinancialImpact        int64 `json:"financialImpact"`
	TargetedSavings        int64 `json:"targetedSavings"`
	TargetedSavingsPercent int64 `json:"targetedSavingsPercent"`
}

// Result is the authoritative calculation output. It is immutable once
// computed; a changed input means a fresh Compute call, never a mutation.
type Result struct {
	Members     int64 `json:"members"`
	WithRx      int64 `json:"withRx"`
	WithORx     int64 `json:"withORx"`
	AtRisk      int64 `json:"atRisk"`
	Prescribers int64 `json:"prescribers"`

	AvgClaim int64 `json:"avgClaim,omitempty"`

	// Provenance: which opioid prescription rate was applied and where it
	// came from.
	OpioidRxRate     float64  `json:"opioidRxRate"`
	CountyRatePer100 *float64 `json:"countyRatePer100"`
	UsedCountyRate   bool     `json:"usedCountyRate"`

	*Financial
}

// round is half away from zero, matching the rounding of every intermediate
// step in the pipeline.
func round(v float64) int64 {
	return int64(math.Round(v))
}

// Compute runs the full deterministic pipeline for one variant. It is a pure
// function: both the in-widget preview and the server-side authoritative
// recompute call it, so the two can never disagree.
//
// countyRatePer100, when non-nil, replaces the configured default opioid
// prescription rate outright (divided by 100); it is never blended with it.
func Compute(variant Variant, in Input, cfg Config, countyRatePer100 *float64) Result {
	var members int64
	switch variant {
	case VariantCommunity:
		members = round(in.Population)
	default:
		if in.PlanMembers > 0 {
			members = round(in.PlanMembers)
		} else {
			members = round(in.Employees * cfg.Math.AvgDependentsPerEmployee)
		}
	}

	withRx := round(float64(members) * cfg.Math.RxRate)

	opioidRxRate := cfg.Math.OpioidRxRate
	if countyRatePer100 != nil {
		opioidRxRate = *countyRatePer100 / 100
		rate := *countyRatePer100
		countyRatePer100 = &rate
	}
	withORx := round(float64(withRx) * opioidRxRate)
	atRisk := round(float64(withORx) * cfg.Math.AtRiskRate)
	prescribers := round(float64(atRisk) * cfg.Math.PrescriberNonCDCRate)

	res := Result{
		Members:          members,
		WithRx:           withRx,
		WithORx:          withORx,
		AtRisk:           atRisk,
		Prescribers:      prescribers,
		OpioidRxRate:     opioidRxRate,
		CountyRatePer100: countyRatePer100,
		UsedCountyRate:   countyRatePer100 != nil,
	}

	if variant == VariantImpact {
		res.AvgClaim = cfg.Math.AvgMedClaimUSD
		financialImpact := withORx * NetCostPerMemberORx
		targetedSavings := withORx * SavingsPerMember
		var targetedSavingsPercent int64
		if financialImpact > 0 {
			targetedSavingsPercent = round(100 * float64(targetedSavings) / float64(financialImpact))
		}
		res.Financial = &Financial{
			CostPerMemberORx:       CostPerMemberORx,
			NetCostPerMemberORx:    NetCostPerMemberORx,
			AvgCareManagedCost:     AvgCareManagedCost,
			SavingsPerMember:       SavingsPerMember,
			FinancialImpact:        financialImpact,
			TargetedSavings:        targetedSavings,
			TargetedSavingsPercent: targetedSavingsPercent,
		}
	}

	return res
}
