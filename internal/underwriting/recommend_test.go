package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
)

func healthyStats() Statistics {
	return Statistics{
		RevenueMean:         dec("20000"),
		RevenueStddev:       dec("2000"),
		ExpenseMean:         dec("15000"),
		ExpenseStddev:       dec("1500"),
		CashflowMean:        dec("5000"),
		CashflowStddev:      dec("800"),
		AverageDailyBalance: dec("8000"),
	}
}

func TestRecommendApprovesHealthyBusiness(t *testing.T) {
	recs := Recommend(healthyStats(), NSFInformation{IncidentCount: 0, TotalFees: decimal.Zero})

	if len(recs) != 2 {
		t.Fatalf("expected 2 product recommendations, got %d", len(recs))
	}
	if recs[0].ProductType != ProductTermLoan || recs[1].ProductType != ProductLineOfCredit {
		t.Fatalf("unexpected product order %s/%s", recs[0].ProductType, recs[1].ProductType)
	}

	term := recs[0]
	if term.ApprovalDecision != DecisionApproved {
		t.Fatalf("expected approval, got %s (risk: %v)", term.ApprovalDecision, term.RiskFactors)
	}
	if !term.MaxMonthlyPayment.Equal(dec("750")) {
		t.Fatalf("expected payment 750 (15%% of 5000), got %s", term.MaxMonthlyPayment)
	}
	if !term.MaxLoanAmount.Equal(dec("27000")) {
		t.Fatalf("expected term amount 27000 (750 x 36), got %s", term.MaxLoanAmount)
	}
	if len(term.ConditionsIfApproved) != 0 {
		t.Fatalf("approved deal should carry no conditions, got %v", term.ConditionsIfApproved)
	}

	loc := recs[1]
	// min(50% of 20000 revenue, 2 x 8000 balance) = 10000.
	if !loc.MaxLoanAmount.Equal(dec("10000")) {
		t.Fatalf("expected LOC amount 10000, got %s", loc.MaxLoanAmount)
	}
}

func TestRecommendDeclinesNegativeCashflow(t *testing.T) {
	stats := healthyStats()
	stats.CashflowMean = dec("-1200")

	recs := Recommend(stats, NSFInformation{IncidentCount: 0})

	for _, rec := range recs {
		if rec.ApprovalDecision != DecisionDeclined {
			t.Fatalf("expected decline for %s, got %s", rec.ProductType, rec.ApprovalDecision)
		}
		if !rec.MaxLoanAmount.IsZero() {
			t.Fatalf("declined deal must carry zero amount, got %s", rec.MaxLoanAmount)
		}
	}
}

func TestRecommendDeclinesHeavyNSF(t *testing.T) {
	recs := Recommend(healthyStats(), NSFInformation{IncidentCount: 8, TotalFees: dec("280")})

	if recs[0].ApprovalDecision != DecisionDeclined {
		t.Fatalf("expected decline for heavy NSF, got %s", recs[0].ApprovalDecision)
	}
}

func TestRecommendConditionalOnThinBalance(t *testing.T) {
	stats := healthyStats()
	stats.AverageDailyBalance = dec("700")

	recs := Recommend(stats, NSFInformation{IncidentCount: 1})

	term := recs[0]
	if term.ApprovalDecision != DecisionConditional {
		t.Fatalf("expected conditional, got %s", term.ApprovalDecision)
	}
	if len(term.ConditionsIfApproved) == 0 {
		t.Fatalf("conditional deal must carry conditions")
	}
	if term.ConfidenceScore >= 0.9 {
		t.Fatalf("conditional confidence should drop below 0.9, got %v", term.ConfidenceScore)
	}
}

func TestConfidenceFloor(t *testing.T) {
	if got := confidenceScore(DecisionConditional, 10); got != 0.3 {
		t.Fatalf("expected confidence floor 0.3, got %v", got)
	}
}
