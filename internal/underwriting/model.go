package underwriting

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary amounts serialize as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Run represents one underwriting pipeline execution.
type Run struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	Provider     string     `json:"provider"`
	Model        string     `json:"model"`
	FilePaths    []string   `json:"filePaths"`
	Status       string     `json:"status"`
	Result       *Document  `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Document is the result document produced per underwriting run. Every field
// is optional; an error document carries only Error and Details.
type Document struct {
	Metrics        *Metrics        `json:"metrics,omitempty"`
	CreditAnalysis *CreditAnalysis `json:"credit_analysis,omitempty"`
	Error          string          `json:"error,omitempty"`
	Details        map[string]any  `json:"details,omitempty"`
}

// Metrics bundles the quantitative sections of the document.
type Metrics struct {
	StatementContinuity    *Continuity        `json:"statement_continuity,omitempty"`
	DailyBalances          []DailyBalance     `json:"daily_balances,omitempty"`
	MonthlyClosingBalances []ClosingBalance   `json:"monthly_closing_balances,omitempty"`
	MonthlyFinancials      *MonthlyFinancials `json:"monthly_financials,omitempty"`
	NSFInformation         *NSFInformation    `json:"nsf_information,omitempty"`
}

// Period is one statement's covered date range. Dates are YYYY-MM-DD.
type Period struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	SourceFile string `json:"source_file,omitempty"`
}

// Gap describes missing days between two statement periods.
type Gap struct {
	After       string `json:"after"`
	Before      string `json:"before"`
	MissingDays int    `json:"missing_days"`
}

// Continuity reports whether the statement periods form an unbroken range.
type Continuity struct {
	Periods      []Period `json:"periods"`
	IsContiguous bool     `json:"is_contiguous"`
	Gaps         []Gap    `json:"gaps"`
}

const (
	SourceStatement = "statement"
	SourceDerived   = "derived"
)

// DailyBalance is an end-of-day account balance.
type DailyBalance struct {
	Date       string          `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	SourceType string          `json:"source_type"`
}

const (
	VerifiedFromDaily = "daily_balance"
	VerifiedStated    = "stated"
)

// ClosingBalance is the balance on the last recorded day of a month.
type ClosingBalance struct {
	Month              string          `json:"month"`
	Amount             decimal.Decimal `json:"amount"`
	VerificationMethod string          `json:"verification_method"`
}

// MonthFinancials holds one month's revenue, expenses and cashflow.
type MonthFinancials struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Cashflow decimal.Decimal `json:"cashflow"`
}

// Statistics summarizes the monthly figures.
type Statistics struct {
	RevenueMean         decimal.Decimal `json:"revenue_mean"`
	RevenueStddev       decimal.Decimal `json:"revenue_stddev"`
	ExpenseMean         decimal.Decimal `json:"expense_mean"`
	ExpenseStddev       decimal.Decimal `json:"expense_stddev"`
	CashflowMean        decimal.Decimal `json:"cashflow_mean"`
	CashflowStddev      decimal.Decimal `json:"cashflow_stddev"`
	AverageDailyBalance decimal.Decimal `json:"average_daily_balance"`
}

// MonthlyFinancials maps YYYY-MM to per-month figures plus statistics.
type MonthlyFinancials struct {
	Months     map[string]MonthFinancials `json:"months"`
	Statistics Statistics                 `json:"statistics"`
}

// NSFIncident is a single non-sufficient-funds fee event.
type NSFIncident struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// NSFInformation aggregates NSF activity across the statements.
type NSFInformation struct {
	IncidentCount int             `json:"incident_count"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	WorstMonth    string          `json:"worst_month,omitempty"`
	Incidents     []NSFIncident   `json:"incidents,omitempty"`
}

const (
	ProductTermLoan     = "term_loan"
	ProductLineOfCredit = "line_of_credit"

	DecisionApproved    = "Approved"
	DecisionConditional = "Conditional"
	DecisionDeclined    = "Declined"
)

// Recommendation is one product's credit decision.
type Recommendation struct {
	ProductType          string          `json:"product_type"`
	ApprovalDecision     string          `json:"approval_decision"`
	ConfidenceScore      float64         `json:"confidence_score"`
	MaxLoanAmount        decimal.Decimal `json:"max_loan_amount"`
	MaxMonthlyPayment    decimal.Decimal `json:"max_monthly_payment"`
	RiskFactors          []string        `json:"risk_factors"`
	MitigatingFactors    []string        `json:"mitigating_factors"`
	ConditionsIfApproved []string        `json:"conditions_if_approved"`
	Analysis             string          `json:"analysis,omitempty"`
	KeyMetrics           map[string]any  `json:"key_metrics,omitempty"`
}

// CreditAnalysis carries the loan recommendations, one per product type.
type CreditAnalysis struct {
	LoanRecommendations []Recommendation `json:"loan_recommendations"`
}
