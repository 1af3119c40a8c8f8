package underwriting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"underwriter-backend/internal/llm"
)

// Analyzer drives the per-step LLM calls and converts the responses into
// document types. All numeric conversion happens here; the service only sees
// typed values.
type Analyzer struct {
	LLM llm.Client
}

// ExtractPeriods asks for the statement period of each file and returns the
// parsed ranges plus the raw response.
func (a *Analyzer) ExtractPeriods(ctx context.Context, statements string) ([]Period, string, error) {
	raw, err := a.complete(ctx, "statement_periods", continuityPrompt, statements)
	if err != nil {
		return nil, "", err
	}

	var periods []Period
	if err := DecodeJSONResponse(raw, &periods); err != nil {
		return nil, raw, fmt.Errorf("statement periods: %w", err)
	}
	if len(periods) == 0 {
		return nil, raw, fmt.Errorf("statement periods: empty response")
	}
	return periods, raw, nil
}

type dailyBalanceRow struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	SourceType string `json:"source_type"`
}

// DailyBalances extracts the dated end-of-day balance series.
func (a *Analyzer) DailyBalances(ctx context.Context, statements string) ([]DailyBalance, string, error) {
	raw, err := a.complete(ctx, "daily_balances", dailyBalancesPrompt, statements)
	if err != nil {
		return nil, "", err
	}

	var rows []dailyBalanceRow
	if err := DecodeJSONResponse(raw, &rows); err != nil {
		return nil, raw, fmt.Errorf("daily balances: %w", err)
	}
	if len(rows) == 0 {
		return nil, raw, fmt.Errorf("daily balances: empty response")
	}

	out := make([]DailyBalance, 0, len(rows))
	for _, row := range rows {
		if _, err := time.Parse(dateLayout, row.Date); err != nil {
			return nil, raw, fmt.Errorf("daily balances: invalid date %q", row.Date)
		}
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, raw, fmt.Errorf("daily balances: invalid amount %q", row.Amount)
		}
		sourceType := row.SourceType
		if sourceType != SourceDerived {
			sourceType = SourceStatement
		}
		out = append(out, DailyBalance{Date: row.Date, Amount: amount, SourceType: sourceType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, raw, nil
}

type monthFinancialsRow struct {
	Revenue  string `json:"revenue"`
	Expenses string `json:"expenses"`
}

// MonthlyFinancials extracts per-month revenue and expenses; cashflow is
// computed here, not trusted from the model.
func (a *Analyzer) MonthlyFinancials(ctx context.Context, statements string) (map[string]MonthFinancials, string, error) {
	raw, err := a.complete(ctx, "monthly_financials", monthlyFinancialsPrompt, statements)
	if err != nil {
		return nil, "", err
	}

	var rows map[string]monthFinancialsRow
	if err := DecodeJSONResponse(raw, &rows); err != nil {
		return nil, raw, fmt.Errorf("monthly financials: %w", err)
	}
	if len(rows) == 0 {
		return nil, raw, fmt.Errorf("monthly financials: empty response")
	}

	out := make(map[string]MonthFinancials, len(rows))
	for month, row := range rows {
		revenue, err := parseAmount(row.Revenue)
		if err != nil {
			return nil, raw, fmt.Errorf("monthly financials: invalid revenue %q for %s", row.Revenue, month)
		}
		expenses, err := parseAmount(row.Expenses)
		if err != nil {
			return nil, raw, fmt.Errorf("monthly financials: invalid expenses %q for %s", row.Expenses, month)
		}
		out[month] = MonthFinancials{
			Revenue:  revenue,
			Expenses: expenses,
			Cashflow: revenue.Sub(expenses),
		}
	}
	return out, raw, nil
}

// StatedClosingBalances asks for the closing balances printed on the
// statements for months the daily series does not cover. Months the model
// cannot source from a statement are simply absent from the result.
func (a *Analyzer) StatedClosingBalances(ctx context.Context, statements string, months []string) ([]ClosingBalance, string, error) {
	prompt := fmt.Sprintf("%s\n\nMonths needed: %s", closingBalancesPrompt, strings.Join(months, ", "))
	raw, err := a.complete(ctx, "stated_closing_balances", prompt, statements)
	if err != nil {
		return nil, "", err
	}

	var rows map[string]string
	if err := DecodeJSONResponse(raw, &rows); err != nil {
		return nil, raw, fmt.Errorf("stated closing balances: %w", err)
	}

	want := make(map[string]bool, len(months))
	for _, m := range months {
		want[m] = true
	}
	out := make([]ClosingBalance, 0, len(rows))
	for month, value := range rows {
		if !want[month] {
			continue
		}
		amount, err := parseAmount(value)
		if err != nil {
			return nil, raw, fmt.Errorf("stated closing balances: invalid amount %q for %s", value, month)
		}
		out = append(out, ClosingBalance{
			Month:              month,
			Amount:             amount,
			VerificationMethod: VerifiedStated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, raw, nil
}

// NSF runs the sentinel-line NSF protocol and returns the aggregate plus any
// itemized incidents found in the response body.
func (a *Analyzer) NSF(ctx context.Context, statements string) (NSFInformation, string, error) {
	raw, err := a.complete(ctx, "nsf_check", nsfPrompt, statements)
	if err != nil {
		return NSFInformation{}, "", err
	}

	count, fees, err := ParseNSF(raw)
	if err != nil {
		return NSFInformation{}, raw, err
	}

	incidents := parseNSFIncidents(raw)
	info := NSFInformation{
		IncidentCount: count,
		TotalFees:     fees,
		Incidents:     incidents,
		WorstMonth:    WorstNSFMonth(incidents),
	}
	return info, raw, nil
}

// AverageDailyBalance runs the FINAL_AMOUNT sentinel protocol.
func (a *Analyzer) AverageDailyBalance(ctx context.Context, statements string) (decimal.Decimal, string, error) {
	raw, err := a.complete(ctx, "average_daily_balance", averageDailyBalancePrompt, statements)
	if err != nil {
		return decimal.Zero, "", err
	}

	amount, err := ParseFinalAmount(raw)
	if err != nil {
		return decimal.Zero, raw, err
	}
	return amount, raw, nil
}

// Narrative produces the free-text analysis attached to the recommendations.
func (a *Analyzer) Narrative(ctx context.Context, metricsSummary string) (string, error) {
	raw, err := a.complete(ctx, "narrative", narrativePrompt, metricsSummary)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (a *Analyzer) complete(ctx context.Context, operation, prompt, payload string) (string, error) {
	provider := a.LLM.Provider()
	resp, err := a.LLM.Complete(ctx, llm.Request{
		Operation: operation,
		System:    systemPrompt,
		Prompt:    prompt + "\n\n" + truncateForContext(payload, provider),
		MaxTokens: llm.MaxTokens(provider),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// truncateForContext trims the statement text so prompt plus response fit the
// provider's context window, leaving room for the instructions and output.
func truncateForContext(text, provider string) string {
	budget := llm.ContextLimit(provider) - 2*llm.MaxTokens(provider)
	if budget <= 0 || llm.EstimateTokens(text) <= budget {
		return text
	}
	maxChars := budget * 4
	if maxChars >= len(text) {
		return text
	}
	// Back up to a rune boundary so the cut never splits a UTF-8 sequence.
	for maxChars > 0 && !utf8.RuneStart(text[maxChars]) {
		maxChars--
	}
	return text[:maxChars]
}

// parseNSFIncidents reads "date | amount | description" lines from the NSF
// response body. Missing or malformed lines are fine; only the sentinel
// totals are mandatory.
func parseNSFIncidents(content string) []NSFIncident {
	var out []NSFIncident
	for _, line := range strings.Split(content, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		date := strings.TrimSpace(strings.TrimLeft(parts[0], "-* \t"))
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		amount, err := parseAmount(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		incident := NSFIncident{Date: date, Amount: amount}
		if len(parts) > 2 {
			incident.Description = strings.TrimSpace(strings.Join(parts[2:], "|"))
		}
		out = append(out, incident)
	}
	return out
}
