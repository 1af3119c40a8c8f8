package underwriting

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

const monthLayout = "2006-01"

// MonthlyClosingFromDaily derives each month's closing balance from the daily
// balance series, taking the last recorded day of the month.
func MonthlyClosingFromDaily(balances []DailyBalance) []ClosingBalance {
	latest := make(map[string]DailyBalance)
	for _, b := range balances {
		if len(b.Date) < 7 {
			continue
		}
		month := b.Date[:7]
		if cur, ok := latest[month]; !ok || b.Date > cur.Date {
			latest[month] = b
		}
	}

	out := make([]ClosingBalance, 0, len(latest))
	for month, b := range latest {
		out = append(out, ClosingBalance{
			Month:              month,
			Amount:             b.Amount,
			VerificationMethod: VerifiedFromDaily,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// MissingClosingMonths lists the months inside the statement periods that
// have no derived closing balance, sorted ascending.
func MissingClosingMonths(periods []Period, closing []ClosingBalance) []string {
	have := make(map[string]bool, len(closing))
	for _, c := range closing {
		have[c.Month] = true
	}

	seen := map[string]bool{}
	var out []string
	for _, p := range periods {
		start, err := time.Parse(dateLayout, p.StartDate)
		if err != nil {
			continue
		}
		end, err := time.Parse(dateLayout, p.EndDate)
		if err != nil {
			continue
		}
		for cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
			month := cur.Format(monthLayout)
			if !have[month] && !seen[month] {
				seen[month] = true
				out = append(out, month)
			}
		}
	}
	sort.Strings(out)
	return out
}

// MergeClosingBalances combines derived and stated entries into one
// month-sorted list.
func MergeClosingBalances(derived, stated []ClosingBalance) []ClosingBalance {
	out := append(append([]ClosingBalance(nil), derived...), stated...)
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// AverageDailyBalance is the mean of the daily balance series.
func AverageDailyBalance(balances []DailyBalance) decimal.Decimal {
	if len(balances) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(balances)))).Round(moneyPlaces)
}

// ComputeStatistics fills the mean/stddev summary over the monthly figures.
func ComputeStatistics(months map[string]MonthFinancials, averageDailyBalance decimal.Decimal) Statistics {
	var revenues, expenses, cashflows []decimal.Decimal
	for _, m := range months {
		revenues = append(revenues, m.Revenue)
		expenses = append(expenses, m.Expenses)
		cashflows = append(cashflows, m.Cashflow)
	}

	revMean, revStddev := meanStddev(revenues)
	expMean, expStddev := meanStddev(expenses)
	cfMean, cfStddev := meanStddev(cashflows)

	return Statistics{
		RevenueMean:         revMean,
		RevenueStddev:       revStddev,
		ExpenseMean:         expMean,
		ExpenseStddev:       expStddev,
		CashflowMean:        cfMean,
		CashflowStddev:      cfStddev,
		AverageDailyBalance: averageDailyBalance,
	}
}

// meanStddev computes the mean and population standard deviation, both
// rounded to cents. The square root goes through float64; cent precision is
// all the document promises.
func meanStddev(values []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(values) == 0 {
		return decimal.Zero, decimal.Zero
	}

	n := decimal.NewFromInt(int64(len(values)))
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	mean := sum.Div(n)

	variance := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(n)

	stddevFloat, _ := variance.Float64()
	stddev := decimal.NewFromFloat(math.Sqrt(stddevFloat))

	return mean.Round(moneyPlaces), stddev.Round(moneyPlaces)
}

// WorstNSFMonth returns the YYYY-MM with the highest total NSF fees.
func WorstNSFMonth(incidents []NSFIncident) string {
	totals := make(map[string]decimal.Decimal)
	for _, in := range incidents {
		if len(in.Date) < 7 {
			continue
		}
		month := in.Date[:7]
		totals[month] = totals[month].Add(in.Amount)
	}

	worst := ""
	worstTotal := decimal.Zero
	for month, total := range totals {
		if worst == "" || total.GreaterThan(worstTotal) ||
			(total.Equal(worstTotal) && month < worst) {
			worst = month
			worstTotal = total
		}
	}
	return worst
}
