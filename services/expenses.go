package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
	"github.com/raywall/taxless-service/pkg/metrics"
)

// ExpensePage is one page of a filtered expense listing.
type ExpensePage struct {
	Expenses  []models.Expense `json:"items"`
	Count     int              `json:"count"`
	NextToken string           `json:"next_token,omitempty"`
	HasMore   bool             `json:"has_more"`
}

// ExpenseService manages expense records inside a user's partition.
type ExpenseService struct {
	store dyndb.Store
	valid *validator.Validate
	stats metrics.Provider
	log   zerolog.Logger
}

func NewExpenseService(store dyndb.Store, stats metrics.Provider, log zerolog.Logger) *ExpenseService {
	if stats == nil {
		stats = metrics.Noop{}
	}
	return &ExpenseService{
		store: store,
		valid: validator.New(),
		stats: stats,
		log:   log,
	}
}

// Create stores a new expense. New expenses always start unverified
// and default to REQUIRES_REVIEW until the analyzer has seen them.
func (s *ExpenseService) Create(ctx context.Context, userID string, req models.CreateExpenseRequest) (models.Expense, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.Expense{}, fmt.Errorf("services: invalid expense: %w", err)
	}
	if !req.Category.Valid() {
		return models.Expense{}, fmt.Errorf("services: unknown category %q", req.Category)
	}

	expense := models.Expense{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProfileID:      req.ProfileID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		Category:       req.Category,
		Date:           req.Date,
		Location:       req.Location,
		TaxEligibility: req.TaxEligibility,
		Notes:          req.Notes,
		Tags:           req.Tags,
		ReceiptIDs:     req.ReceiptIDs,
		IsVerified:     false,
	}
	if expense.Currency == "" {
		expense.Currency = models.CAD
	}
	if expense.TaxEligibility == "" {
		expense.TaxEligibility = models.RequiresReview
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	rec, err := s.store.Create(ctx, models.UserKey(userID), models.ExpenseKey(userID, expense.ID), expense.Record())
	if err != nil {
		return models.Expense{}, err
	}

	s.stats.Count("expenses.created", 1, []string{"category:" + string(expense.Category)})
	s.log.Info().Str("user_id", userID).Str("expense_id", expense.ID).Msg("expense created")
	return models.ExpenseFromRecord(rec), nil
}

// Get loads one expense.
func (s *ExpenseService) Get(ctx context.Context, userID, expenseID string) (models.Expense, error) {
	rec, err := s.store.Get(ctx, models.UserKey(userID), models.ExpenseKey(userID, expenseID))
	if err != nil {
		return models.Expense{}, err
	}
	return models.ExpenseFromRecord(rec), nil
}

// List pages through the user's expenses, narrowed by the filter. The
// partition query plus sort-key prefix keeps this off a table scan.
func (s *ExpenseService) List(ctx context.Context, userID string, filter models.ExpenseFilter, limit int32, token string) (ExpensePage, error) {
	qb := s.store.Query().
		Partition(models.UserKey(userID)).
		SortBeginsWith(models.UserExpensesPrefix(userID))
	applyExpenseFilter(qb, filter)
	if limit > 0 {
		qb.Limit(limit)
	}
	if token != "" {
		qb.StartToken(token)
	}

	page, err := qb.Exec(ctx)
	if err != nil {
		return ExpensePage{}, err
	}

	out := ExpensePage{
		Expenses:  make([]models.Expense, 0, len(page.Items)),
		Count:     page.Count,
		NextToken: page.NextToken,
		HasMore:   page.HasMore,
	}
	for _, rec := range page.Items {
		out.Expenses = append(out.Expenses, models.ExpenseFromRecord(rec))
	}
	return out, nil
}

// Update applies the non-nil request fields.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, req models.UpdateExpenseRequest) (models.Expense, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.Expense{}, fmt.Errorf("services: invalid expense update: %w", err)
	}

	updates := dyndb.Record{}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Currency != nil {
		updates["currency"] = string(*req.Currency)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return models.Expense{}, fmt.Errorf("services: unknown category %q", *req.Category)
		}
		updates["category"] = string(*req.Category)
	}
	if req.Date != nil {
		updates["date"] = *req.Date
	}
	if req.Location != nil {
		updates["location"] = req.Location.Record()
	}
	if req.TaxEligibility != nil {
		updates["tax_eligibility"] = string(*req.TaxEligibility)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
	}
	if req.ReceiptIDs != nil {
		updates["receipt_ids"] = req.ReceiptIDs
	}

	rec, err := s.store.Update(ctx, models.UserKey(userID), models.ExpenseKey(userID, expenseID), updates)
	if err != nil {
		return models.Expense{}, err
	}
	return models.ExpenseFromRecord(rec), nil
}

// Delete removes an expense.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	return s.store.Delete(ctx, models.UserKey(userID), models.ExpenseKey(userID, expenseID))
}

// Summary aggregates the user's expenses by category, month and tax
// eligibility. It walks every page the filter matches.
func (s *ExpenseService) Summary(ctx context.Context, userID string, filter models.ExpenseFilter) (models.ExpenseSummary, error) {
	expenses, err := s.listAll(ctx, userID, filter)
	if err != nil {
		return models.ExpenseSummary{}, err
	}
	return summarize(expenses), nil
}

func (s *ExpenseService) listAll(ctx context.Context, userID string, filter models.ExpenseFilter) ([]models.Expense, error) {
	var all []models.Expense
	token := ""
	for {
		page, err := s.List(ctx, userID, filter, 0, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Expenses...)
		if !page.HasMore {
			return all, nil
		}
		token = page.NextToken
	}
}

func applyExpenseFilter(qb *dyndb.QueryBuilder, filter models.ExpenseFilter) {
	if len(filter.ProfileIDs) == 1 {
		qb.FilterEqual("profile_id", filter.ProfileIDs[0])
	} else if len(filter.ProfileIDs) > 1 {
		qb.FilterIn("profile_id", toAny(filter.ProfileIDs)...)
	}
	if len(filter.Categories) == 1 {
		qb.FilterEqual("category", string(filter.Categories[0]))
	} else if len(filter.Categories) > 1 {
		values := make([]any, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			values = append(values, string(c))
		}
		qb.FilterIn("category", values...)
	}
	if filter.DateFrom != nil && filter.DateTo != nil {
		qb.FilterBetween("date", *filter.DateFrom, *filter.DateTo)
	} else if filter.DateFrom != nil {
		qb.FilterGTE("date", *filter.DateFrom)
	} else if filter.DateTo != nil {
		qb.FilterLTE("date", *filter.DateTo)
	}
	if filter.MinAmount != nil {
		qb.FilterGTE("amount", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		qb.FilterLTE("amount", *filter.MaxAmount)
	}
	if len(filter.TaxEligibility) == 1 {
		qb.FilterEqual("tax_eligibility", string(filter.TaxEligibility[0]))
	} else if len(filter.TaxEligibility) > 1 {
		values := make([]any, 0, len(filter.TaxEligibility))
		for _, e := range filter.TaxEligibility {
			values = append(values, string(e))
		}
		qb.FilterIn("tax_eligibility", values...)
	}
	for _, tag := range filter.Tags {
		qb.FilterContains("tags", tag)
	}
	if filter.IsVerified != nil {
		qb.FilterEqual("is_verified", *filter.IsVerified)
	}
}

func summarize(expenses []models.Expense) models.ExpenseSummary {
	summary := models.ExpenseSummary{
		TotalExpenses:    len(expenses),
		Currency:         models.CAD,
		ByCategory:       map[string]float64{},
		ByMonth:          map[string]float64{},
		ByTaxEligibility: map[string]float64{},
	}
	if len(expenses) > 0 && expenses[0].Currency != "" {
		summary.Currency = expenses[0].Currency
	}

	for _, e := range expenses {
		summary.TotalAmount += e.Amount
		summary.ByCategory[string(e.Category)] += e.Amount
		summary.ByTaxEligibility[string(e.TaxEligibility)] += e.Amount
		if !e.Date.IsZero() {
			summary.ByMonth[e.Date.Format("2006-01")] += e.Amount
		}
	}
	if summary.TotalExpenses > 0 {
		summary.AverageAmount = summary.TotalAmount / float64(summary.TotalExpenses)
	}
	return summary
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
