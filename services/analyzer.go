package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/ai"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
	"github.com/raywall/taxless-service/pkg/metrics"
)

// analysisWindow bounds how far back the batch run looks for
// unverified expenses.
const analysisWindow = 30 * 24 * time.Hour

// highAmountThreshold flags expenses that likely need supporting
// documentation.
const highAmountThreshold = 1000.0

// TaxAnalyzer is the slice of the LLM analyzer the batch service
// needs.
type TaxAnalyzer interface {
	AnalyzeTaxEligibility(ctx context.Context, expense map[string]any) ai.EligibilityResult
	FilterExpenses(ctx context.Context, expenses []map[string]any, taxYear int, profileType string) ai.FilterResult
}

// BatchResult reports one batch analysis run.
type BatchResult struct {
	Processed int                  `json:"processed_count"`
	Errors    int                  `json:"error_count"`
	Summary   models.YearlySummary `json:"summary"`
}

// AnalyzerService runs the scheduled expense analysis: it sweeps
// recent unverified expenses through the LLM, writes the verdicts
// back, then produces the year-to-date report.
type AnalyzerService struct {
	store dyndb.Store
	llm   TaxAnalyzer
	stats metrics.Provider
	log   zerolog.Logger
	now   func() time.Time
}

func NewAnalyzerService(store dyndb.Store, llm TaxAnalyzer, stats metrics.Provider, log zerolog.Logger) *AnalyzerService {
	if stats == nil {
		stats = metrics.Noop{}
	}
	return &AnalyzerService{
		store: store,
		llm:   llm,
		stats: stats,
		log:   log,
		now:   time.Now,
	}
}

// BatchAnalyze finds every unverified expense created in the last 30
// days, asks the model for a verdict, and records it. A failed update
// marks the expense with the error and leaves it unverified so the
// next run retries it. Concurrent manual edits lose to the analyzer's
// write.
func (s *AnalyzerService) BatchAnalyze(ctx context.Context) (BatchResult, error) {
	cutoff := s.now().UTC().Add(-analysisWindow)

	expenses, err := s.unverifiedSince(ctx, cutoff)
	if err != nil {
		return BatchResult{}, err
	}
	s.log.Info().Int("count", len(expenses)).Msg("starting batch expense analysis")

	result := BatchResult{}
	for _, expense := range expenses {
		if err := s.analyzeOne(ctx, expense); err != nil {
			result.Errors++
			s.log.Error().Err(err).Str("expense_id", expense.ID).Msg("expense analysis failed")
			continue
		}
		result.Processed++
	}

	summary, err := s.YearSummary(ctx, s.now().UTC().Year())
	if err != nil {
		s.log.Error().Err(err).Msg("year summary generation failed")
	} else {
		result.Summary = summary
	}

	s.stats.Count("analyzer.expenses_processed", float64(result.Processed), nil)
	s.stats.Count("analyzer.expenses_failed", float64(result.Errors), nil)
	s.log.Info().Int("processed", result.Processed).Int("errors", result.Errors).Msg("batch expense analysis completed")
	return result, nil
}

// unverifiedSince scans across partitions: the batch job has no single
// user to anchor a query on.
func (s *AnalyzerService) unverifiedSince(ctx context.Context, cutoff time.Time) ([]models.Expense, error) {
	var all []models.Expense
	token := ""
	for {
		qb := s.store.Scan().
			FilterEqual("type", "expense").
			FilterEqual("is_verified", false).
			FilterGTE("created_at", cutoff)
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			all = append(all, models.ExpenseFromRecord(rec))
		}
		if !page.HasMore {
			return all, nil
		}
		token = page.NextToken
	}
}

func (s *AnalyzerService) analyzeOne(ctx context.Context, expense models.Expense) error {
	verdict := s.llm.AnalyzeTaxEligibility(ctx, map[string]any{
		"id":          expense.ID,
		"amount":      expense.Amount,
		"currency":    string(expense.Currency),
		"description": expense.Description,
		"category":    string(expense.Category),
		"date":        expense.Date,
		"notes":       expense.Notes,
		"tags":        expense.Tags,
	})

	updates := dyndb.Record{
		"tax_eligibility": string(verdict.TaxEligibility),
		"is_verified":     true,
		"llm_analysis": dyndb.Record{
			"tax_eligibility":     string(verdict.TaxEligibility),
			"confidence":          verdict.Confidence,
			"reasoning":           verdict.Reasoning,
			"suggestions":         verdict.Suggestions,
			"category_suggestion": verdict.CategorySuggestion,
			"notes":               verdict.Notes,
		},
		"analyzed_at": s.now().UTC(),
	}
	if verdict.CategorySuggestion != "" && models.ExpenseCategory(verdict.CategorySuggestion).Valid() {
		updates["category"] = verdict.CategorySuggestion
	}

	pk := models.UserKey(expense.UserID)
	sk := models.ExpenseKey(expense.UserID, expense.ID)
	if _, err := s.store.Update(ctx, pk, sk, updates); err != nil {
		s.recordAnalysisError(ctx, pk, sk, err)
		return err
	}
	return nil
}

func (s *AnalyzerService) recordAnalysisError(ctx context.Context, pk, sk string, cause error) {
	_, err := s.store.Update(ctx, pk, sk, dyndb.Record{
		"is_verified": false,
		"llm_analysis": dyndb.Record{
			"error":        cause.Error(),
			"processed_at": s.now().UTC(),
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("sk", sk).Msg("failed to record analysis error")
	}
}

// YearSummary aggregates every expense created in the given year and
// flags the ones a reviewer should look at: high amounts, personal
// expenses, and anything still unverified.
func (s *AnalyzerService) YearSummary(ctx context.Context, year int) (models.YearlySummary, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)

	var expenses []models.Expense
	token := ""
	for {
		qb := s.store.Scan().
			FilterEqual("type", "expense").
			FilterBetween("created_at", start, end)
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return models.YearlySummary{}, err
		}
		for _, rec := range page.Items {
			expenses = append(expenses, models.ExpenseFromRecord(rec))
		}
		if !page.HasMore {
			break
		}
		token = page.NextToken
	}

	summary := models.YearlySummary{
		Year:          year,
		TotalExpenses: len(expenses),
		ByCategory:    map[string]float64{},
		ByEligibility: map[string]float64{},
		ByMonth:       map[string]float64{},
		GeneratedAt:   s.now().UTC(),
	}

	for _, e := range expenses {
		summary.TotalAmount += e.Amount
		summary.ByCategory[string(e.Category)] += e.Amount
		summary.ByEligibility[string(e.TaxEligibility)] += e.Amount
		if !e.CreatedAt.IsZero() {
			summary.ByMonth[e.CreatedAt.Format("2006-01")] += e.Amount
		}

		var issues []string
		if e.Amount > highAmountThreshold {
			issues = append(issues, "High amount - may need documentation")
		}
		if e.TaxEligibility == models.PersonalExpense {
			issues = append(issues, "Marked as personal expense")
		}
		if !e.IsVerified {
			issues = append(issues, "Not yet verified by AI")
		}
		if len(issues) > 0 {
			summary.FlaggedExpenses = append(summary.FlaggedExpenses, models.FlaggedExpense{
				ID:          e.ID,
				Amount:      e.Amount,
				Description: e.Description,
				Issues:      issues,
			})
		}
	}
	return summary, nil
}

// TaxReport assembles the year-end report for one profile: the
// profile's expenses for the tax year, their summary, and the model's
// compliance pass over the set.
func (s *AnalyzerService) TaxReport(ctx context.Context, userID, profileID string, taxYear int, profileType models.TaxProfileType) (models.TaxReport, error) {
	from := time.Date(taxYear, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(taxYear, 12, 31, 23, 59, 59, 0, time.UTC)
	filter := models.ExpenseFilter{
		ProfileIDs: []string{profileID},
		DateFrom:   &from,
		DateTo:     &to,
	}

	var expenses []models.Expense
	token := ""
	for {
		qb := s.store.Query().
			Partition(models.UserKey(userID)).
			SortBeginsWith(models.UserExpensesPrefix(userID))
		applyExpenseFilter(qb, filter)
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return models.TaxReport{}, err
		}
		for _, rec := range page.Items {
			expenses = append(expenses, models.ExpenseFromRecord(rec))
		}
		if !page.HasMore {
			break
		}
		token = page.NextToken
	}

	review := s.TaxReview(ctx, expenses, taxYear, profileType)
	report := models.TaxReport{
		ProfileID: profileID,
		TaxYear:   taxYear,
		Summary:   summarize(expenses),
		Expenses:  expenses,
		LLMAnalysis: map[string]any{
			"summary":             review.Summary,
			"suggestions":         review.Suggestions,
			"flagged_expenses":    review.FlaggedExpenses,
			"categories_analysis": review.CategoriesAnalysis,
		},
	}
	for _, e := range expenses {
		if !e.IsVerified || e.TaxEligibility == models.RequiresReview {
			report.FlaggedExpenses = append(report.FlaggedExpenses, e)
		}
	}
	return report, nil
}

// TaxReview hands a filtered expense set to the model for a year-end
// compliance pass.
func (s *AnalyzerService) TaxReview(ctx context.Context, expenses []models.Expense, taxYear int, profileType models.TaxProfileType) ai.FilterResult {
	payload := make([]map[string]any, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, map[string]any{
			"id":              e.ID,
			"amount":          e.Amount,
			"currency":        string(e.Currency),
			"description":     e.Description,
			"category":        string(e.Category),
			"tax_eligibility": string(e.TaxEligibility),
			"is_verified":     e.IsVerified,
		})
	}
	return s.llm.FilterExpenses(ctx, payload, taxYear, string(profileType))
}
