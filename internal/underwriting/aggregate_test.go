package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMonthlyClosingFromDaily(t *testing.T) {
	balances := []DailyBalance{
		{Date: "2024-01-02", Amount: dec("100.00"), SourceType: SourceStatement},
		{Date: "2024-01-31", Amount: dec("250.00"), SourceType: SourceStatement},
		{Date: "2024-01-15", Amount: dec("175.00"), SourceType: SourceStatement},
		{Date: "2024-02-28", Amount: dec("300.00"), SourceType: SourceStatement},
	}

	closing := MonthlyClosingFromDaily(balances)
	if len(closing) != 2 {
		t.Fatalf("expected 2 months, got %d", len(closing))
	}
	if closing[0].Month != "2024-01" || !closing[0].Amount.Equal(dec("250.00")) {
		t.Fatalf("unexpected January closing %+v", closing[0])
	}
	if closing[1].Month != "2024-02" || !closing[1].Amount.Equal(dec("300.00")) {
		t.Fatalf("unexpected February closing %+v", closing[1])
	}
	if closing[0].VerificationMethod != VerifiedFromDaily {
		t.Fatalf("unexpected verification method %s", closing[0].VerificationMethod)
	}
}

func TestMissingClosingMonths(t *testing.T) {
	periods := []Period{
		{StartDate: "2024-01-01", EndDate: "2024-01-31", SourceFile: "jan.pdf"},
		{StartDate: "2024-02-01", EndDate: "2024-03-31", SourceFile: "feb-mar.pdf"},
	}
	closing := []ClosingBalance{
		{Month: "2024-01", Amount: dec("250.00"), VerificationMethod: VerifiedFromDaily},
		{Month: "2024-03", Amount: dec("400.00"), VerificationMethod: VerifiedFromDaily},
	}

	missing := MissingClosingMonths(periods, closing)
	if len(missing) != 1 || missing[0] != "2024-02" {
		t.Fatalf("expected [2024-02], got %v", missing)
	}

	if missing := MissingClosingMonths(periods, append(closing, ClosingBalance{Month: "2024-02"})); len(missing) != 0 {
		t.Fatalf("expected no missing months, got %v", missing)
	}
}

func TestMergeClosingBalancesSortsByMonth(t *testing.T) {
	derived := []ClosingBalance{
		{Month: "2024-01", Amount: dec("250.00"), VerificationMethod: VerifiedFromDaily},
		{Month: "2024-03", Amount: dec("400.00"), VerificationMethod: VerifiedFromDaily},
	}
	stated := []ClosingBalance{
		{Month: "2024-02", Amount: dec("310.00"), VerificationMethod: VerifiedStated},
	}

	merged := MergeClosingBalances(derived, stated)
	if len(merged) != 3 {
		t.Fatalf("expected 3 months, got %d", len(merged))
	}
	if merged[1].Month != "2024-02" || merged[1].VerificationMethod != VerifiedStated {
		t.Fatalf("expected stated February in the middle, got %+v", merged[1])
	}
}

func TestAverageDailyBalance(t *testing.T) {
	balances := []DailyBalance{
		{Date: "2024-01-01", Amount: dec("100")},
		{Date: "2024-01-02", Amount: dec("200")},
		{Date: "2024-01-03", Amount: dec("400")},
	}

	avg := AverageDailyBalance(balances)
	if !avg.Equal(dec("233.33")) {
		t.Fatalf("expected 233.33, got %s", avg)
	}

	if !AverageDailyBalance(nil).IsZero() {
		t.Fatalf("expected zero for empty series")
	}
}

func TestComputeStatistics(t *testing.T) {
	months := map[string]MonthFinancials{
		"2024-01": {Revenue: dec("1000"), Expenses: dec("800"), Cashflow: dec("200")},
		"2024-02": {Revenue: dec("3000"), Expenses: dec("1200"), Cashflow: dec("1800")},
	}

	stats := ComputeStatistics(months, dec("500.00"))

	if !stats.RevenueMean.Equal(dec("2000")) {
		t.Fatalf("expected revenue mean 2000, got %s", stats.RevenueMean)
	}
	if !stats.RevenueStddev.Equal(dec("1000")) {
		t.Fatalf("expected revenue stddev 1000, got %s", stats.RevenueStddev)
	}
	if !stats.CashflowMean.Equal(dec("1000")) {
		t.Fatalf("expected cashflow mean 1000, got %s", stats.CashflowMean)
	}
	if !stats.AverageDailyBalance.Equal(dec("500.00")) {
		t.Fatalf("expected ADB 500, got %s", stats.AverageDailyBalance)
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, decimal.Zero)
	if !stats.RevenueMean.IsZero() || !stats.CashflowStddev.IsZero() {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
}

func TestWorstNSFMonth(t *testing.T) {
	incidents := []NSFIncident{
		{Date: "2024-01-05", Amount: dec("35")},
		{Date: "2024-02-02", Amount: dec("35")},
		{Date: "2024-02-20", Amount: dec("35")},
	}

	if got := WorstNSFMonth(incidents); got != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", got)
	}
	if got := WorstNSFMonth(nil); got != "" {
		t.Fatalf("expected empty month for no incidents, got %s", got)
	}
}
