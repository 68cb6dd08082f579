package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/models"
)

// Analyzer turns receipt text and expense records into structured tax
// insight via the language model. Failures never propagate: every
// method degrades to a conservative fallback so a flaky model cannot
// block receipt processing.
type Analyzer struct {
	llm Generator
	log zerolog.Logger
}

func NewAnalyzer(llm Generator, log zerolog.Logger) *Analyzer {
	return &Analyzer{llm: llm, log: log}
}

// fallbackConfidence marks an analysis that carries the raw text only.
const fallbackConfidence = 0.1

// EligibilityResult is the model's verdict on one expense.
type EligibilityResult struct {
	TaxEligibility     models.TaxEligibility `json:"tax_eligibility"`
	Confidence         float64               `json:"confidence"`
	Reasoning          string                `json:"reasoning"`
	Suggestions        []string              `json:"suggestions"`
	CategorySuggestion string                `json:"category_suggestion,omitempty"`
	Notes              string                `json:"notes,omitempty"`
}

// FlaggedExpense is one expense the model wants a human to look at.
type FlaggedExpense struct {
	ExpenseID  string `json:"expense_id"`
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// FilterResult is the model's review of a whole expense list.
type FilterResult struct {
	FlaggedExpenses    []FlaggedExpense  `json:"flagged_expenses"`
	Summary            string            `json:"summary"`
	Suggestions        []string          `json:"suggestions"`
	CategoriesAnalysis map[string]string `json:"categories_analysis,omitempty"`
}

// AnalyzeReceipt extracts structured receipt fields from OCR text. On
// any model or parse failure it returns a low-confidence analysis
// carrying just the raw text.
func (a *Analyzer) AnalyzeReceipt(ctx context.Context, ocrText string, metadata map[string]any) models.ReceiptAnalysis {
	response, err := a.llm.Generate(ctx, receiptPrompt(ocrText, metadata))
	if err != nil {
		a.log.Warn().Err(err).Msg("receipt analysis falling back to raw text")
		return fallbackAnalysis(ocrText)
	}
	return parseReceiptAnalysis(response)
}

// AnalyzeTaxEligibility asks the model whether one expense is
// deductible. Failures come back as REQUIRES_REVIEW with zero
// confidence.
func (a *Analyzer) AnalyzeTaxEligibility(ctx context.Context, expense map[string]any) EligibilityResult {
	response, err := a.llm.Generate(ctx, eligibilityPrompt(expense))
	if err != nil {
		a.log.Warn().Err(err).Msg("eligibility analysis failed")
		return EligibilityResult{
			TaxEligibility: models.RequiresReview,
			Reasoning:      fmt.Sprintf("LLM analysis failed: %v", err),
			Suggestions:    []string{},
		}
	}
	return parseEligibility(response)
}

// FilterExpenses reviews an expense list for a year-end report.
func (a *Analyzer) FilterExpenses(ctx context.Context, expenses []map[string]any, taxYear int, profileType string) FilterResult {
	response, err := a.llm.Generate(ctx, filteringPrompt(expenses, taxYear, profileType))
	if err != nil {
		a.log.Warn().Err(err).Msg("expense filtering failed")
		return FilterResult{
			FlaggedExpenses: []FlaggedExpense{},
			Summary:         fmt.Sprintf("LLM filtering failed: %v", err),
			Suggestions:     []string{},
		}
	}
	return parseFilterResult(response)
}

func parseReceiptAnalysis(response string) models.ReceiptAnalysis {
	var payload struct {
		MerchantName    string           `json:"merchant_name"`
		TotalAmount     *float64         `json:"total_amount"`
		Currency        string           `json:"currency"`
		Date            string           `json:"date"`
		Items           []map[string]any `json:"items"`
		TaxAmount       *float64         `json:"tax_amount"`
		Subtotal        *float64         `json:"subtotal"`
		ConfidenceScore *float64         `json:"confidence_score"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		return fallbackAnalysis(response)
	}

	analysis := models.ReceiptAnalysis{
		MerchantName:    payload.MerchantName,
		TotalAmount:     payload.TotalAmount,
		Currency:        models.Currency(payload.Currency),
		Items:           payload.Items,
		TaxAmount:       payload.TaxAmount,
		Subtotal:        payload.Subtotal,
		ConfidenceScore: 0.5,
		RawText:         response,
	}
	if payload.ConfidenceScore != nil {
		analysis.ConfidenceScore = *payload.ConfidenceScore
	}
	if payload.Date != "" {
		if t, err := parseISODate(payload.Date); err == nil {
			analysis.Date = t
		}
	}
	return analysis
}

func parseEligibility(response string) EligibilityResult {
	var payload EligibilityResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		return EligibilityResult{
			TaxEligibility: models.RequiresReview,
			Reasoning:      fmt.Sprintf("Failed to parse response: %v", err),
			Suggestions:    []string{},
		}
	}
	if !payload.TaxEligibility.Valid() {
		payload.TaxEligibility = models.RequiresReview
	}
	if payload.Suggestions == nil {
		payload.Suggestions = []string{}
	}
	return payload
}

func parseFilterResult(response string) FilterResult {
	var payload FilterResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		return FilterResult{
			FlaggedExpenses: []FlaggedExpense{},
			Summary:         fmt.Sprintf("Failed to parse response: %v", err),
			Suggestions:     []string{},
		}
	}
	if payload.FlaggedExpenses == nil {
		payload.FlaggedExpenses = []FlaggedExpense{}
	}
	if payload.Suggestions == nil {
		payload.Suggestions = []string{}
	}
	return payload
}

func fallbackAnalysis(rawText string) models.ReceiptAnalysis {
	return models.ReceiptAnalysis{
		Items:           []map[string]any{},
		ConfidenceScore: fallbackConfidence,
		RawText:         rawText,
	}
}

// extractJSON pulls the first top-level JSON object out of a freeform
// model response. Models wrap their JSON in prose and markdown fences
// often enough that plain unmarshalling is hopeless.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start < 0 {
		return response
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return response[start:]
}

func parseISODate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ai: unparseable date: %s", value)
}
