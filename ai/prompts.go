package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const receiptPromptTemplate = `You are an expert at analyzing receipt images and extracting structured information for expense tracking.

Please analyze the following OCR text from a receipt and extract the following information in JSON format:

OCR Text:
%s
%s
Please return a JSON object with the following structure:
{
    "merchant_name": "Name of the business/merchant",
    "total_amount": 123.45,
    "currency": "CAD",
    "date": "2024-01-15T12:30:00",
    "items": [
        {
            "description": "Item description",
            "quantity": 1,
            "unit_price": 10.00,
            "total_price": 10.00
        }
    ],
    "tax_amount": 12.34,
    "subtotal": 111.11,
    "confidence_score": 0.85,
    "notes": "Any additional observations or uncertainties"
}

Guidelines:
- If a field cannot be determined, use null
- For currency, use standard codes (CAD, USD, EUR, GBP)
- For dates, use ISO format
- Confidence score should be between 0.0 and 1.0
- Be conservative with confidence scores if information is unclear`

const eligibilityPromptTemplate = `You are a tax expert analyzing business expenses for tax deduction eligibility in Canada.

Please analyze the following expense and determine its tax eligibility:

Expense Details:
%s

Please return a JSON object with the following structure:
{
    "tax_eligibility": "FULLY_DEDUCTIBLE|PARTIALLY_DEDUCTIBLE|NOT_DEDUCTIBLE|PERSONAL|REQUIRES_REVIEW",
    "confidence": 0.85,
    "reasoning": "Detailed explanation of the determination",
    "suggestions": [
        "Specific suggestions for improving tax compliance"
    ],
    "category_suggestion": "SUGGESTED_CATEGORY",
    "notes": "Additional tax-related notes"
}

Tax Eligibility Guidelines:
- FULLY_DEDUCTIBLE: 100%% deductible business expense
- PARTIALLY_DEDUCTIBLE: 50%% deductible (e.g., meals and entertainment)
- NOT_DEDUCTIBLE: Not eligible for deduction
- PERSONAL: Personal expense, not business-related
- REQUIRES_REVIEW: Needs human review

Consider:
- Business purpose and necessity
- Personal vs business use
- CRA guidelines and restrictions
- Documentation requirements`

const filteringPromptTemplate = `You are a tax expert reviewing a list of expenses for %s tax filing for the year %d.

Please analyze the following expenses and provide tax-related insights:

Expenses:
%s

Please return a JSON object with the following structure:
{
    "flagged_expenses": [
        {
            "expense_id": "id",
            "issue": "Description of the issue",
            "severity": "HIGH|MEDIUM|LOW",
            "suggestion": "How to address the issue"
        }
    ],
    "summary": "Overall summary of the expense list for tax purposes",
    "suggestions": [
        "General suggestions for tax optimization"
    ],
    "categories_analysis": {
        "category": "Analysis of this category"
    }
}

Focus on:
- Expenses that may not be deductible
- Missing documentation
- Potential audit risks
- Tax optimization opportunities
- Compliance with CRA guidelines`

func receiptPrompt(ocrText string, metadata map[string]any) string {
	return fmt.Sprintf(receiptPromptTemplate, ocrText, formatMetadata(metadata))
}

func eligibilityPrompt(expense map[string]any) string {
	return fmt.Sprintf(eligibilityPromptTemplate, mustJSON(expense))
}

func filteringPrompt(expenses []map[string]any, taxYear int, profileType string) string {
	return fmt.Sprintf(filteringPromptTemplate, profileType, taxYear, mustJSON(expenses))
}

func formatMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("\nImage Metadata:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, metadata[k])
	}
	return sb.String()
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
