// Package invest computes cash-flow projections for a candidate property,
// including the improvement scenario specific to each lead category.
package invest

import (
	"math"

	"github.com/homescout/leadgen/internal/model"
)

// Assumptions holds the financing and operating inputs for an analysis.
type Assumptions struct {
	DownPaymentPct   float64 `json:"down_payment_pct" mapstructure:"down_payment_pct"`
	InterestRatePct  float64 `json:"interest_rate_pct" mapstructure:"interest_rate_pct"`
	LoanTermYears    int     `json:"loan_term_years" mapstructure:"loan_term_years"`
	MonthlyRent      float64 `json:"monthly_rent" mapstructure:"monthly_rent"`
	MonthlyExpenses  float64 `json:"monthly_expenses" mapstructure:"monthly_expenses"`
	VacancyRatePct   float64 `json:"vacancy_rate_pct" mapstructure:"vacancy_rate_pct"`
	ImprovementCost  float64 `json:"improvement_cost" mapstructure:"improvement_cost"`
	RentPremiumAfter float64 `json:"rent_premium_after" mapstructure:"rent_premium_after"`
}

// DefaultAssumptions returns conventional single-family financing defaults.
// Improvement figures are filled per category by ImprovementDefaults.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		DownPaymentPct:  20,
		InterestRatePct: 6.5,
		LoanTermYears:   30,
		VacancyRatePct:  5,
	}
}

// ImprovementDefaults returns the category-specific improvement scenario:
// pool leads model a pool remodel, backyard leads model a yard build-out
// (ADU-ready landscaping).
func ImprovementDefaults(category model.LeadCategory) (cost, rentPremium float64) {
	switch category {
	case model.CategoryPool:
		return 15_000, 250
	case model.CategoryBackyard:
		return 45_000, 900
	default:
		return 0, 0
	}
}

// Analysis is the computed cash-flow projection.
type Analysis struct {
	PurchasePrice      float64 `json:"purchase_price"`
	DownPayment        float64 `json:"down_payment"`
	LoanAmount         float64 `json:"loan_amount"`
	MonthlyMortgage    float64 `json:"monthly_mortgage"`
	EffectiveRent      float64 `json:"effective_rent"`
	MonthlyCashFlow    float64 `json:"monthly_cash_flow"`
	AnnualNOI          float64 `json:"annual_noi"`
	CapRatePct         float64 `json:"cap_rate_pct"`
	CashOnCashPct      float64 `json:"cash_on_cash_pct"`
	ImprovementCost    float64 `json:"improvement_cost,omitempty"`
	ImprovementROIPct  float64 `json:"improvement_roi_pct,omitempty"`
	PaybackYears       float64 `json:"payback_years,omitempty"`
	CashFlowAfterImprv float64 `json:"cash_flow_after_improvement,omitempty"`
}

// Analyze computes the projection for a purchase price under the given
// assumptions. Pure arithmetic, no I/O.
func Analyze(price float64, a Assumptions) Analysis {
	down := price * a.DownPaymentPct / 100
	loan := price - down
	mortgage := monthlyPayment(loan, a.InterestRatePct, a.LoanTermYears)

	effectiveRent := a.MonthlyRent * (1 - a.VacancyRatePct/100)
	cashFlow := effectiveRent - a.MonthlyExpenses - mortgage
	noi := (effectiveRent - a.MonthlyExpenses) * 12

	out := Analysis{
		PurchasePrice:   price,
		DownPayment:     down,
		LoanAmount:      loan,
		MonthlyMortgage: round2(mortgage),
		EffectiveRent:   round2(effectiveRent),
		MonthlyCashFlow: round2(cashFlow),
		AnnualNOI:       round2(noi),
	}

	if price > 0 {
		out.CapRatePct = round2(noi / price * 100)
	}
	if down > 0 {
		out.CashOnCashPct = round2(cashFlow * 12 / down * 100)
	}

	if a.ImprovementCost > 0 {
		annualPremium := a.RentPremiumAfter * 12 * (1 - a.VacancyRatePct/100)
		out.ImprovementCost = a.ImprovementCost
		out.ImprovementROIPct = round2(annualPremium / a.ImprovementCost * 100)
		if annualPremium > 0 {
			out.PaybackYears = round2(a.ImprovementCost / annualPremium)
		}
		out.CashFlowAfterImprv = round2(cashFlow + a.RentPremiumAfter*(1-a.VacancyRatePct/100))
	}

	return out
}

// monthlyPayment is the standard amortized payment formula.
func monthlyPayment(principal, annualRatePct float64, termYears int) float64 {
	if principal <= 0 || termYears <= 0 {
		return 0
	}
	n := float64(termYears * 12)
	if annualRatePct == 0 {
		return principal / n
	}
	r := annualRatePct / 100 / 12
	return principal * r * math.Pow(1+r, n) / (math.Pow(1+r, n) - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
