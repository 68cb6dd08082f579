package models

import "time"

// Request payloads validated with go-playground/validator before any
// storage call. Pointer fields on update requests distinguish "leave
// unchanged" from an explicit new value.

type RegisterUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateProfileRequest struct {
	Name            string         `json:"name" validate:"required"`
	ProfileType     TaxProfileType `json:"profile_type" validate:"required,oneof=personal business"`
	DefaultCurrency Currency       `json:"default_currency" validate:"omitempty,oneof=CAD USD EUR GBP"`
	TaxYear         int            `json:"tax_year" validate:"required,gte=2020,lte=2030"`
	BusinessNumber  string         `json:"business_number,omitempty"`
	Address         string         `json:"address,omitempty"`
	Description     string         `json:"description,omitempty"`
}

type UpdateProfileRequest struct {
	Name            *string         `json:"name,omitempty"`
	ProfileType     *TaxProfileType `json:"profile_type,omitempty" validate:"omitempty,oneof=personal business"`
	DefaultCurrency *Currency       `json:"default_currency,omitempty" validate:"omitempty,oneof=CAD USD EUR GBP"`
	BusinessNumber  *string         `json:"business_number,omitempty"`
	Address         *string         `json:"address,omitempty"`
	Description     *string         `json:"description,omitempty"`
}

type CreateExpenseRequest struct {
	ProfileID      string          `json:"profile_id" validate:"required"`
	Amount         float64         `json:"amount" validate:"required,gt=0"`
	Currency       Currency        `json:"currency" validate:"omitempty,oneof=CAD USD EUR GBP"`
	Description    string          `json:"description" validate:"required"`
	Category       ExpenseCategory `json:"category" validate:"required"`
	Date           time.Time       `json:"date"`
	Location       *Location       `json:"location,omitempty"`
	TaxEligibility TaxEligibility  `json:"tax_eligibility,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	ReceiptIDs     []string        `json:"receipt_ids,omitempty"`
}

type UpdateExpenseRequest struct {
	Amount         *float64         `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Currency       *Currency        `json:"currency,omitempty" validate:"omitempty,oneof=CAD USD EUR GBP"`
	Description    *string          `json:"description,omitempty"`
	Category       *ExpenseCategory `json:"category,omitempty"`
	Date           *time.Time       `json:"date,omitempty"`
	Location       *Location        `json:"location,omitempty"`
	TaxEligibility *TaxEligibility  `json:"tax_eligibility,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	ReceiptIDs     []string         `json:"receipt_ids,omitempty"`
}

// ExpenseFilter narrows expense listings and summaries. Empty fields
// match everything.
type ExpenseFilter struct {
	ProfileIDs     []string          `json:"profile_ids,omitempty"`
	Categories     []ExpenseCategory `json:"categories,omitempty"`
	DateFrom       *time.Time        `json:"date_from,omitempty"`
	DateTo         *time.Time        `json:"date_to,omitempty"`
	MinAmount      *float64          `json:"min_amount,omitempty"`
	MaxAmount      *float64          `json:"max_amount,omitempty"`
	TaxEligibility []TaxEligibility  `json:"tax_eligibility,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	IsVerified     *bool             `json:"is_verified,omitempty"`
}

// ExpenseSummary aggregates a set of expenses for reporting.
type ExpenseSummary struct {
	TotalExpenses    int                `json:"total_expenses"`
	TotalAmount      float64            `json:"total_amount"`
	Currency         Currency           `json:"currency"`
	ByCategory       map[string]float64 `json:"by_category"`
	ByMonth          map[string]float64 `json:"by_month"`
	ByTaxEligibility map[string]float64 `json:"by_tax_eligibility"`
	AverageAmount    float64            `json:"average_amount"`
}

// TaxReport is the year-end view of one profile.
type TaxReport struct {
	ProfileID       string         `json:"profile_id"`
	TaxYear         int            `json:"tax_year"`
	Summary         ExpenseSummary `json:"summary"`
	Expenses        []Expense      `json:"expenses"`
	FlaggedExpenses []Expense      `json:"flagged_expenses"`
	LLMAnalysis     map[string]any `json:"llm_analysis,omitempty"`
}

// YearlySummary is the report the batch analyzer produces after each
// run.
type YearlySummary struct {
	Year            int                `json:"year"`
	TotalExpenses   int                `json:"total_expenses"`
	TotalAmount     float64            `json:"total_amount"`
	ByCategory      map[string]float64 `json:"by_category"`
	ByEligibility   map[string]float64 `json:"by_eligibility"`
	ByMonth         map[string]float64 `json:"by_month"`
	FlaggedExpenses []FlaggedExpense   `json:"flagged_expenses"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// FlaggedExpense is one expense the yearly report wants reviewed.
type FlaggedExpense struct {
	ID          string   `json:"id"`
	Amount      float64  `json:"amount"`
	Description string   `json:"description"`
	Issues      []string `json:"issues"`
}

// TokenPair is what a successful authentication returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int32  `json:"expires_in"`
}
