package models

// TaxProfileType says whether a profile tracks personal or business
// spending. The values are lowercase on the wire.
type TaxProfileType string

const (
	ProfilePersonal TaxProfileType = "personal"
	ProfileBusiness TaxProfileType = "business"
)

func (t TaxProfileType) Valid() bool {
	return t == ProfilePersonal || t == ProfileBusiness
}

// Currency is the ISO 4217 code of the supported settlement currencies.
type Currency string

const (
	CAD Currency = "CAD"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

func (c Currency) Valid() bool {
	switch c {
	case CAD, USD, EUR, GBP:
		return true
	}
	return false
}

// ExpenseCategory classifies an expense for tax reporting.
type ExpenseCategory string

const (
	CategoryMealsEntertainment      ExpenseCategory = "MEALS_ENTERTAINMENT"
	CategoryTravel                  ExpenseCategory = "TRAVEL"
	CategoryOfficeSupplies          ExpenseCategory = "OFFICE_SUPPLIES"
	CategoryVehicle                 ExpenseCategory = "VEHICLE"
	CategoryHomeOffice              ExpenseCategory = "HOME_OFFICE"
	CategoryProfessionalDevelopment ExpenseCategory = "PROFESSIONAL_DEVELOPMENT"
	CategoryInsurance               ExpenseCategory = "INSURANCE"
	CategoryUtilities               ExpenseCategory = "UTILITIES"
	CategoryRent                    ExpenseCategory = "RENT"
	CategoryEquipment               ExpenseCategory = "EQUIPMENT"
	CategorySoftware                ExpenseCategory = "SOFTWARE"
	CategoryMarketing               ExpenseCategory = "MARKETING"
	CategoryLegal                   ExpenseCategory = "LEGAL"
	CategoryOther                   ExpenseCategory = "OTHER"
)

// CategoryLabels maps each category to its report-facing display name.
var CategoryLabels = map[ExpenseCategory]string{
	CategoryMealsEntertainment:      "Meals and Entertainment",
	CategoryTravel:                  "Travel Expenses",
	CategoryOfficeSupplies:          "Office Supplies",
	CategoryVehicle:                 "Vehicle Expenses",
	CategoryHomeOffice:              "Home Office",
	CategoryProfessionalDevelopment: "Professional Development",
	CategoryInsurance:               "Insurance",
	CategoryUtilities:               "Utilities",
	CategoryRent:                    "Rent",
	CategoryEquipment:               "Equipment",
	CategorySoftware:                "Software and Subscriptions",
	CategoryMarketing:               "Marketing and Advertising",
	CategoryLegal:                   "Legal and Professional Services",
	CategoryOther:                   "Other",
}

func (c ExpenseCategory) Valid() bool {
	_, ok := CategoryLabels[c]
	return ok
}

// TaxEligibility records how deductible an expense is, or that a human
// still has to decide.
type TaxEligibility string

const (
	FullyDeductible     TaxEligibility = "FULLY_DEDUCTIBLE"
	PartiallyDeductible TaxEligibility = "PARTIALLY_DEDUCTIBLE"
	NotDeductible       TaxEligibility = "NOT_DEDUCTIBLE"
	PersonalExpense     TaxEligibility = "PERSONAL"
	RequiresReview      TaxEligibility = "REQUIRES_REVIEW"
)

// EligibilityLabels maps each eligibility flag to its display name.
var EligibilityLabels = map[TaxEligibility]string{
	FullyDeductible:     "Fully deductible",
	PartiallyDeductible: "Partially deductible (50%)",
	NotDeductible:       "Not deductible",
	PersonalExpense:     "Personal expense",
	RequiresReview:      "Requires review",
}

func (t TaxEligibility) Valid() bool {
	_, ok := EligibilityLabels[t]
	return ok
}
