package underwriting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"underwriter-backend/internal/extract"
	"underwriter-backend/internal/llm"
	"underwriter-backend/internal/shared/metrics"
	"underwriter-backend/internal/shared/storage/object"
	"underwriter-backend/internal/shared/telemetry"
	"underwriter-backend/internal/statements"
	"underwriter-backend/internal/usage"
)

// ClientFactory resolves a provider name to a ready LLM client.
type ClientFactory func(provider string) (llm.Client, error)

// extractText is a seam for tests; production always runs the PDF extractor.
var extractText = extract.ExtractText

// RunRequest is the parsed /underwrite request body.
type RunRequest struct {
	FilePaths []string `json:"file_paths"`
	Provider  string   `json:"provider"`
	Debug     bool     `json:"debug"`
}

// Service orchestrates the underwriting pipeline.
type Service struct {
	Repo            Repo
	Statements      *statements.Service
	Store           object.ObjectStore
	Hub             *Hub
	Usage           *usage.Service
	Clients         ClientFactory
	DefaultProvider string
}

// Underwrite runs the full pipeline synchronously and returns the finished
// run. A non-contiguous statement set returns the run with an error document
// and ErrNonContiguous; the caller maps that to HTTP 422.
func (s *Service) Underwrite(ctx context.Context, sessionID string, req RunRequest) (Run, error) {
	if sessionID == "" {
		return Run{}, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	if len(req.FilePaths) == 0 {
		return Run{}, fmt.Errorf("%w: file_paths required", ErrInvalidInput)
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = s.DefaultProvider
	}
	client, err := s.Clients(provider)
	if err != nil {
		return Run{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	// Consume is conditional in the store, so two concurrent requests can
	// never both slip past the limit.
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, sessionID, 1); err != nil {
			return Run{}, err
		}
	}

	now := time.Now().UTC()
	run := Run{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Provider:  provider,
		Model:     client.Model(),
		FilePaths: req.FilePaths,
		Status:    StatusProcessing,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, run); err != nil {
		return Run{}, err
	}

	metrics.IncRunStarted()
	telemetry.Info("underwriting.run_started", map[string]any{
		"run_id":     run.ID,
		"session_id": sessionID,
		"provider":   provider,
		"files":      len(req.FilePaths),
	})

	doc, err := s.execute(ctx, &run, newRetryingLLM(client, run.ID), req.Debug)
	elapsed := float64(time.Since(now).Milliseconds())
	metrics.ObserveRunDurationMs(elapsed)

	switch {
	case err == nil:
		run.Status = StatusCompleted
		run.Result = doc
		metrics.IncRunCompleted()
		s.emit(run.ID, StepUnderwriting, StatusStepSuccess, "")
	case errors.Is(err, ErrNonContiguous):
		run.Status = StatusFailed
		run.Result = doc
		run.ErrorMessage = err.Error()
		metrics.IncRunFailed()
		s.emit(run.ID, StepUnderwriting, StatusStepError, err.Error())
	default:
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
		metrics.IncRunFailed()
		s.emit(run.ID, StepUnderwriting, StatusStepError, err.Error())
	}

	if updateErr := s.Repo.UpdateStatus(ctx, run.ID, run.Status, run.Result, run.ErrorMessage); updateErr != nil {
		telemetry.Error("underwriting.update_failed", map[string]any{
			"run_id": run.ID,
			"error":  updateErr.Error(),
		})
	}

	telemetry.Info("underwriting.run_finished", map[string]any{
		"run_id":      run.ID,
		"session_id":  sessionID,
		"status":      run.Status,
		"duration_ms": elapsed,
	})
	return run, err
}

// execute walks the pipeline steps. It returns the result document; for the
// non-contiguous case the document carries the error and gap details.
func (s *Service) execute(ctx context.Context, run *Run, client llm.Client, debug bool) (*Document, error) {
	analyzer := &Analyzer{LLM: client}
	runID := run.ID

	// Statement loading.
	s.emit(runID, StepLoading, StatusInProgress, "")
	files, err := s.Statements.Resolve(ctx, run.SessionID, run.FilePaths)
	if err != nil {
		s.emit(runID, StepLoading, StatusStepError, err.Error())
		return nil, err
	}
	s.emit(runID, StepLoading, StatusStepSuccess, fmt.Sprintf("%d statement(s) loaded", len(files)))

	// Text extraction.
	s.emit(runID, StepExtraction, StatusInProgress, "")
	names := make([]string, 0, len(files))
	texts := make([]string, 0, len(files))
	for _, f := range files {
		text, err := extractText(ctx, s.Store, f.StorageKey, f.MimeType)
		if err != nil {
			s.emit(runID, StepExtraction, StatusStepError, fmt.Sprintf("%s: %v", f.FileName, err))
			return nil, fmt.Errorf("extract %s: %w", f.FileName, err)
		}
		if err := s.Statements.MarkExtracted(ctx, f.ID, f.StorageKey+extract.TextKeySuffix); err != nil {
			telemetry.Error("underwriting.mark_extracted_failed", map[string]any{
				"run_id": runID,
				"error":  err.Error(),
			})
		}
		names = append(names, f.FileName)
		texts = append(texts, text)
	}
	merged, err := extract.MergeStatements(names, texts)
	if err != nil {
		s.emit(runID, StepExtraction, StatusStepError, err.Error())
		return nil, err
	}
	s.emit(runID, StepExtraction, StatusStepSuccess, "")

	doc := &Document{Metrics: &Metrics{}}
	debugDetails := map[string]any{}

	// Statement continuity.
	s.emit(runID, StepContinuity, StatusInProgress, "")
	periods, raw, err := analyzer.ExtractPeriods(ctx, merged)
	if err != nil {
		s.emit(runID, StepContinuity, StatusStepError, err.Error())
		return nil, err
	}
	s.debugCapture(debug, debugDetails, "statement_periods", raw)
	continuity, err := CheckContinuity(periods)
	if err != nil {
		s.emit(runID, StepContinuity, StatusStepError, err.Error())
		return nil, err
	}
	doc.Metrics.StatementContinuity = &continuity
	if !continuity.IsContiguous {
		detail := fmt.Sprintf("%d gap(s) between statement periods", len(continuity.Gaps))
		s.emit(runID, StepContinuity, StatusStepError, detail)
		doc.Error = ErrNonContiguous.Error()
		doc.Details = map[string]any{"gaps": continuity.Gaps}
		return doc, ErrNonContiguous
	}
	s.emit(runID, StepContinuity, StatusStepSuccess, fmt.Sprintf("%d contiguous period(s)", len(continuity.Periods)))

	// Daily balances.
	s.emit(runID, StepDailyBalances, StatusInProgress, "")
	daily, raw, err := analyzer.DailyBalances(ctx, merged)
	if err != nil {
		s.emit(runID, StepDailyBalances, StatusStepError, err.Error())
		return nil, err
	}
	s.debugCapture(debug, debugDetails, "daily_balances", raw)
	doc.Metrics.DailyBalances = daily
	s.emit(runID, StepDailyBalances, StatusStepSuccess, fmt.Sprintf("%d daily balance(s)", len(daily)))

	// Monthly closing balances, derived in Go from the daily series. Months
	// the daily series does not cover fall back to the balance stated on
	// that month's statement.
	s.emit(runID, StepClosingBals, StatusInProgress, "")
	closing := MonthlyClosingFromDaily(daily)
	closingDetail := ""
	if missing := MissingClosingMonths(continuity.Periods, closing); len(missing) > 0 {
		stated, raw, err := analyzer.StatedClosingBalances(ctx, merged, missing)
		if err != nil {
			telemetry.Error("underwriting.stated_closing_failed", map[string]any{
				"run_id": runID,
				"months": missing,
				"error":  err.Error(),
			})
			closingDetail = fmt.Sprintf("no closing balance for %s", strings.Join(missing, ", "))
		} else {
			s.debugCapture(debug, debugDetails, "stated_closing_balances", raw)
			closing = MergeClosingBalances(closing, stated)
			closingDetail = fmt.Sprintf("%d month(s) from stated balances", len(stated))
		}
	}
	doc.Metrics.MonthlyClosingBalances = closing
	s.emit(runID, StepClosingBals, StatusStepSuccess, closingDetail)

	// Monthly financials and statistics.
	s.emit(runID, StepFinancials, StatusInProgress, "")
	months, raw, err := analyzer.MonthlyFinancials(ctx, merged)
	if err != nil {
		s.emit(runID, StepFinancials, StatusStepError, err.Error())
		return nil, err
	}
	s.debugCapture(debug, debugDetails, "monthly_financials", raw)
	averageDaily := AverageDailyBalance(daily)
	stats := ComputeStatistics(months, averageDaily)
	doc.Metrics.MonthlyFinancials = &MonthlyFinancials{Months: months, Statistics: stats}
	s.emit(runID, StepFinancials, StatusStepSuccess, "")

	// NSF check.
	s.emit(runID, StepNSF, StatusInProgress, "")
	nsf, raw, err := analyzer.NSF(ctx, merged)
	if err != nil {
		s.emit(runID, StepNSF, StatusStepError, err.Error())
		return nil, err
	}
	s.debugCapture(debug, debugDetails, "nsf_check", raw)
	doc.Metrics.NSFInformation = &nsf
	s.emit(runID, StepNSF, StatusStepSuccess, fmt.Sprintf("%d incident(s)", nsf.IncidentCount))

	// Average daily balance cross-check. The computed value is
	// authoritative; a large disagreement is only reported.
	s.emit(runID, StepBalanceCheck, StatusInProgress, "")
	crossCheck, raw, err := analyzer.AverageDailyBalance(ctx, merged)
	switch {
	case err != nil:
		telemetry.Error("underwriting.balance_check_failed", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
		s.emit(runID, StepBalanceCheck, StatusStepSuccess, "cross-check unavailable, using computed value")
	case disagrees(averageDaily, crossCheck):
		s.emit(runID, StepBalanceCheck, StatusStepSuccess,
			fmt.Sprintf("model value %s differs from computed %s, keeping computed", crossCheck, averageDaily))
	default:
		s.emit(runID, StepBalanceCheck, StatusStepSuccess, "")
	}
	s.debugCapture(debug, debugDetails, "average_daily_balance", raw)

	// Loan recommendation.
	s.emit(runID, StepRecommendation, StatusInProgress, "")
	recs := Recommend(stats, nsf)
	narrative, err := analyzer.Narrative(ctx, metricsSummary(stats, nsf))
	if err != nil {
		telemetry.Error("underwriting.narrative_failed", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
	} else {
		for i := range recs {
			recs[i].Analysis = narrative
		}
	}
	doc.CreditAnalysis = &CreditAnalysis{LoanRecommendations: recs}
	s.emit(runID, StepRecommendation, StatusStepSuccess, recs[0].ApprovalDecision)

	if debug && len(debugDetails) > 0 {
		doc.Details = map[string]any{"debug": debugDetails}
	}
	return doc, nil
}

// GetRun returns a session's run by ID.
func (s *Service) GetRun(ctx context.Context, sessionID, runID string) (Run, error) {
	if runID == "" {
		return Run{}, fmt.Errorf("%w: run id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, sessionID, runID)
}

// ListRuns returns a session's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, sessionID string, limit, offset int) ([]Run, error) {
	return s.Repo.ListBySession(ctx, sessionID, limit, offset)
}

func (s *Service) emit(runID, step, status, details string) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(Event{
		Step:    step,
		Status:  status,
		Details: details,
		RunID:   runID,
	})
}

const debugSnippetLen = 400

func (s *Service) debugCapture(enabled bool, details map[string]any, step, raw string) {
	if !enabled || raw == "" {
		return
	}
	if len(raw) > debugSnippetLen {
		raw = raw[:debugSnippetLen] + "..."
	}
	details[step] = raw
	telemetry.Debug("underwriting.step_response", map[string]any{
		"step":    step,
		"snippet": raw,
	})
}

// disagrees reports whether the model's cross-check differs from the
// computed average by more than 5%.
func disagrees(computed, crossCheck decimal.Decimal) bool {
	if computed.IsZero() {
		return !crossCheck.IsZero()
	}
	diff := computed.Sub(crossCheck).Abs()
	return diff.GreaterThan(computed.Abs().Mul(decimal.NewFromFloat(0.05)))
}

func metricsSummary(stats Statistics, nsf NSFInformation) string {
	return fmt.Sprintf(
		"average monthly revenue: %s\naverage monthly expenses: %s\naverage monthly cashflow: %s (stddev %s)\naverage daily balance: %s\nNSF incidents: %d totaling %s",
		stats.RevenueMean, stats.ExpenseMean, stats.CashflowMean, stats.CashflowStddev,
		stats.AverageDailyBalance, nsf.IncidentCount, nsf.TotalFees,
	)
}
