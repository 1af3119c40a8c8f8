package underwriting

import (
	"github.com/shopspring/decimal"
)

// Underwriting thresholds. Amounts are monthly unless noted.
var (
	minAverageDailyBalance = decimal.NewFromInt(1000)
	lowBalanceFloor        = decimal.NewFromInt(500)

	// Share of monthly cashflow a payment may consume.
	paymentShare = decimal.NewFromFloat(0.15)

	// Term loan amortizes over 36 months; line of credit is sized off
	// revenue with a cap relative to average balance.
	termLoanMonths = decimal.NewFromInt(36)
	locRevenueShare = decimal.NewFromFloat(0.5)
)

const (
	maxNSFForApproval    = 2
	maxNSFForConditional = 5
)

// Recommend produces the deterministic credit decision for both product
// types from the computed metrics. The free-text analysis is attached by the
// caller.
func Recommend(stats Statistics, nsf NSFInformation) []Recommendation {
	risk, mitigating := assessFactors(stats, nsf)
	decision := decide(stats, nsf)
	confidence := confidenceScore(decision, len(risk))

	maxPayment := decimal.Zero
	if stats.CashflowMean.IsPositive() {
		maxPayment = stats.CashflowMean.Mul(paymentShare).Round(moneyPlaces)
	}

	termAmount := decimal.Zero
	locAmount := decimal.Zero
	if decision != DecisionDeclined {
		termAmount = maxPayment.Mul(termLoanMonths).Round(moneyPlaces)
		locAmount = decimal.Min(
			stats.RevenueMean.Mul(locRevenueShare),
			stats.AverageDailyBalance.Mul(decimal.NewFromInt(2)),
		).Round(moneyPlaces)
		if locAmount.IsNegative() {
			locAmount = decimal.Zero
		}
	}

	var conditions []string
	if decision == DecisionConditional {
		conditions = []string{
			"Provide three additional months of bank statements",
			"Enroll in automatic payments from the analyzed account",
			"Personal guarantee from the business owner",
		}
	}

	keyMetrics := map[string]any{
		"revenue_mean":          stats.RevenueMean,
		"cashflow_mean":         stats.CashflowMean,
		"average_daily_balance": stats.AverageDailyBalance,
		"nsf_incident_count":    nsf.IncidentCount,
	}

	base := Recommendation{
		ApprovalDecision:     decision,
		ConfidenceScore:      confidence,
		MaxMonthlyPayment:    maxPayment,
		RiskFactors:          risk,
		MitigatingFactors:    mitigating,
		ConditionsIfApproved: conditions,
		KeyMetrics:           keyMetrics,
	}

	termLoan := base
	termLoan.ProductType = ProductTermLoan
	termLoan.MaxLoanAmount = termAmount

	lineOfCredit := base
	lineOfCredit.ProductType = ProductLineOfCredit
	lineOfCredit.MaxLoanAmount = locAmount

	return []Recommendation{termLoan, lineOfCredit}
}

func decide(stats Statistics, nsf NSFInformation) string {
	if !stats.CashflowMean.IsPositive() || nsf.IncidentCount > maxNSFForConditional {
		return DecisionDeclined
	}
	if nsf.IncidentCount <= maxNSFForApproval &&
		stats.AverageDailyBalance.GreaterThanOrEqual(minAverageDailyBalance) {
		return DecisionApproved
	}
	return DecisionConditional
}

func assessFactors(stats Statistics, nsf NSFInformation) (risk, mitigating []string) {
	risk = []string{}
	mitigating = []string{}

	if !stats.CashflowMean.IsPositive() {
		risk = append(risk, "Negative average monthly cashflow")
	} else if stats.CashflowStddev.GreaterThan(stats.CashflowMean) {
		risk = append(risk, "Volatile monthly cashflow")
	} else {
		mitigating = append(mitigating, "Consistently positive monthly cashflow")
	}

	if stats.RevenueMean.IsPositive() {
		half := stats.RevenueMean.Div(decimal.NewFromInt(2))
		quarter := stats.RevenueMean.Div(decimal.NewFromInt(4))
		switch {
		case stats.RevenueStddev.GreaterThan(half):
			risk = append(risk, "High revenue volatility between months")
		case stats.RevenueStddev.LessThan(quarter):
			mitigating = append(mitigating, "Stable month-over-month revenue")
		}
	}

	switch {
	case nsf.IncidentCount == 0:
		mitigating = append(mitigating, "No NSF activity in the period reviewed")
	case nsf.IncidentCount <= maxNSFForApproval:
		risk = append(risk, "Occasional NSF activity")
	default:
		risk = append(risk, "Repeated NSF incidents indicate cash pressure")
	}

	switch {
	case stats.AverageDailyBalance.LessThan(lowBalanceFloor):
		risk = append(risk, "Low average daily balance")
	case stats.AverageDailyBalance.GreaterThanOrEqual(minAverageDailyBalance):
		mitigating = append(mitigating, "Healthy average daily balance")
	}

	return risk, mitigating
}

// confidenceScore starts at 0.9 and loses a tenth per risk factor, floored
// at 0.3. Declines are reported with the same scale.
func confidenceScore(decision string, riskCount int) float64 {
	score := 0.9 - 0.1*float64(riskCount)
	if decision == DecisionConditional {
		score -= 0.1
	}
	if score < 0.3 {
		score = 0.3
	}
	return score
}
