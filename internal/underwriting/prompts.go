package underwriting

import _ "embed"

var (
	//go:embed prompts/system.txt
	systemPrompt string
	//go:embed prompts/continuity.txt
	continuityPrompt string
	//go:embed prompts/daily_balances.txt
	dailyBalancesPrompt string
	//go:embed prompts/monthly_financials.txt
	monthlyFinancialsPrompt string
	//go:embed prompts/closing_balances.txt
	closingBalancesPrompt string
	//go:embed prompts/nsf.txt
	nsfPrompt string
	//go:embed prompts/average_daily_balance.txt
	averageDailyBalancePrompt string
	//go:embed prompts/narrative.txt
	narrativePrompt string
)
