package models

import (
	"time"

	"github.com/raywall/taxless-service/dyndb"
)

// User is the account record stored under pk=sk=UserKey(id).
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Record() dyndb.Record {
	rec := dyndb.Record{
		"id":         u.ID,
		"type":       "user",
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_active":  u.IsActive,
	}
	if u.Phone != "" {
		rec["phone"] = u.Phone
	}
	return rec
}

func UserFromRecord(rec dyndb.Record) User {
	return User{
		ID:        recString(rec, "id"),
		Email:     recString(rec, "email"),
		FirstName: recString(rec, "first_name"),
		LastName:  recString(rec, "last_name"),
		Phone:     recString(rec, "phone"),
		IsActive:  recBool(rec, "is_active"),
		CreatedAt: recTime(rec, "created_at"),
		UpdatedAt: recTime(rec, "updated_at"),
	}
}

// TaxProfile groups expenses under one filing context, personal or
// business, for a single tax year.
type TaxProfile struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Name            string         `json:"name"`
	ProfileType     TaxProfileType `json:"profile_type"`
	DefaultCurrency Currency       `json:"default_currency"`
	TaxYear         int            `json:"tax_year"`
	BusinessNumber  string         `json:"business_number,omitempty"`
	Address         string         `json:"address,omitempty"`
	Description     string         `json:"description,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p TaxProfile) Record() dyndb.Record {
	rec := dyndb.Record{
		"id":               p.ID,
		"type":             "profile",
		"user_id":          p.UserID,
		"name":             p.Name,
		"profile_type":     string(p.ProfileType),
		"default_currency": string(p.DefaultCurrency),
		"tax_year":         p.TaxYear,
	}
	if p.BusinessNumber != "" {
		rec["business_number"] = p.BusinessNumber
	}
	if p.Address != "" {
		rec["address"] = p.Address
	}
	if p.Description != "" {
		rec["description"] = p.Description
	}
	return rec
}

func ProfileFromRecord(rec dyndb.Record) TaxProfile {
	return TaxProfile{
		ID:              recString(rec, "id"),
		UserID:          recString(rec, "user_id"),
		Name:            recString(rec, "name"),
		ProfileType:     TaxProfileType(recString(rec, "profile_type")),
		DefaultCurrency: Currency(recString(rec, "default_currency")),
		TaxYear:         recInt(rec, "tax_year"),
		BusinessNumber:  recString(rec, "business_number"),
		Address:         recString(rec, "address"),
		Description:     recString(rec, "description"),
		CreatedAt:       recTime(rec, "created_at"),
		UpdatedAt:       recTime(rec, "updated_at"),
	}
}

// Location captures where an expense happened and where the data came
// from (exif, ocr, ip or manual).
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	Province  string   `json:"province,omitempty"`
	Country   string   `json:"country,omitempty"`
	Source    string   `json:"source"`
}

func (l Location) Record() dyndb.Record {
	rec := dyndb.Record{"source": l.Source}
	if l.Latitude != nil {
		rec["latitude"] = *l.Latitude
	}
	if l.Longitude != nil {
		rec["longitude"] = *l.Longitude
	}
	if l.Address != "" {
		rec["address"] = l.Address
	}
	if l.City != "" {
		rec["city"] = l.City
	}
	if l.Province != "" {
		rec["province"] = l.Province
	}
	if l.Country != "" {
		rec["country"] = l.Country
	}
	return rec
}

func locationFromRecord(rec dyndb.Record) *Location {
	if rec == nil {
		return nil
	}
	loc := &Location{
		Latitude:  recFloatPtr(rec, "latitude"),
		Longitude: recFloatPtr(rec, "longitude"),
		Address:   recString(rec, "address"),
		City:      recString(rec, "city"),
		Province:  recString(rec, "province"),
		Country:   recString(rec, "country"),
		Source:    recString(rec, "source"),
	}
	return loc
}

// Expense is the core spending record.
type Expense struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	ProfileID      string          `json:"profile_id"`
	Amount         float64         `json:"amount"`
	Currency       Currency        `json:"currency"`
	Description    string          `json:"description"`
	Category       ExpenseCategory `json:"category"`
	Date           time.Time       `json:"date"`
	Location       *Location       `json:"location,omitempty"`
	TaxEligibility TaxEligibility  `json:"tax_eligibility"`
	Notes          string          `json:"notes,omitempty"`
	Tags           []string        `json:"tags"`
	ReceiptIDs     []string        `json:"receipt_ids"`
	IsVerified     bool            `json:"is_verified"`
	LLMAnalysis    map[string]any  `json:"llm_analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (e Expense) Record() dyndb.Record {
	rec := dyndb.Record{
		"id":              e.ID,
		"type":            "expense",
		"user_id":         e.UserID,
		"profile_id":      e.ProfileID,
		"amount":          e.Amount,
		"currency":        string(e.Currency),
		"description":     e.Description,
		"category":        string(e.Category),
		"date":            e.Date,
		"tax_eligibility": string(e.TaxEligibility),
		"is_verified":     e.IsVerified,
		"tags":            toAnySlice(e.Tags),
		"receipt_ids":     toAnySlice(e.ReceiptIDs),
	}
	if e.Location != nil {
		rec["location"] = e.Location.Record()
	}
	if e.Notes != "" {
		rec["notes"] = e.Notes
	}
	if e.LLMAnalysis != nil {
		rec["llm_analysis"] = dyndb.Record(e.LLMAnalysis)
	}
	return rec
}

func ExpenseFromRecord(rec dyndb.Record) Expense {
	exp := Expense{
		ID:             recString(rec, "id"),
		UserID:         recString(rec, "user_id"),
		ProfileID:      recString(rec, "profile_id"),
		Amount:         recFloat(rec, "amount"),
		Currency:       Currency(recString(rec, "currency")),
		Description:    recString(rec, "description"),
		Category:       ExpenseCategory(recString(rec, "category")),
		Date:           recTime(rec, "date"),
		TaxEligibility: TaxEligibility(recString(rec, "tax_eligibility")),
		Notes:          recString(rec, "notes"),
		Tags:           recStrings(rec, "tags"),
		ReceiptIDs:     recStrings(rec, "receipt_ids"),
		IsVerified:     recBool(rec, "is_verified"),
		CreatedAt:      recTime(rec, "created_at"),
		UpdatedAt:      recTime(rec, "updated_at"),
	}
	if loc := recMap(rec, "location"); loc != nil {
		exp.Location = locationFromRecord(loc)
	}
	if analysis := recMap(rec, "llm_analysis"); analysis != nil {
		exp.LLMAnalysis = map[string]any(analysis)
	}
	return exp
}

// ReceiptAnalysis is the structured result extracted from a receipt
// image by OCR plus the language model.
type ReceiptAnalysis struct {
	MerchantName    string           `json:"merchant_name,omitempty"`
	TotalAmount     *float64         `json:"total_amount,omitempty"`
	Currency        Currency         `json:"currency,omitempty"`
	Date            time.Time        `json:"date"`
	Items           []map[string]any `json:"items"`
	TaxAmount       *float64         `json:"tax_amount,omitempty"`
	Subtotal        *float64         `json:"subtotal,omitempty"`
	ConfidenceScore float64          `json:"confidence_score"`
	RawText         string           `json:"raw_text"`
}

func (a ReceiptAnalysis) Record() dyndb.Record {
	rec := dyndb.Record{
		"confidence_score": a.ConfidenceScore,
		"raw_text":         a.RawText,
	}
	if a.MerchantName != "" {
		rec["merchant_name"] = a.MerchantName
	}
	if a.TotalAmount != nil {
		rec["total_amount"] = *a.TotalAmount
	}
	if a.Currency != "" {
		rec["currency"] = string(a.Currency)
	}
	if !a.Date.IsZero() {
		rec["date"] = a.Date
	}
	if a.TaxAmount != nil {
		rec["tax_amount"] = *a.TaxAmount
	}
	if a.Subtotal != nil {
		rec["subtotal"] = *a.Subtotal
	}
	if len(a.Items) > 0 {
		items := make([]any, 0, len(a.Items))
		for _, item := range a.Items {
			items = append(items, dyndb.Record(item))
		}
		rec["items"] = items
	}
	return rec
}

func analysisFromRecord(rec dyndb.Record) *ReceiptAnalysis {
	if rec == nil {
		return nil
	}
	a := &ReceiptAnalysis{
		MerchantName:    recString(rec, "merchant_name"),
		TotalAmount:     recFloatPtr(rec, "total_amount"),
		Currency:        Currency(recString(rec, "currency")),
		Date:            recTime(rec, "date"),
		TaxAmount:       recFloatPtr(rec, "tax_amount"),
		Subtotal:        recFloatPtr(rec, "subtotal"),
		ConfidenceScore: recFloat(rec, "confidence_score"),
		RawText:         recString(rec, "raw_text"),
	}
	if items, ok := rec["items"].([]any); ok {
		for _, item := range items {
			if m := toStringMap(item); m != nil {
				a.Items = append(a.Items, m)
			}
		}
	}
	return a
}

// Receipt tracks an uploaded receipt image and its processing state.
type Receipt struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ExpenseID       string           `json:"expense_id,omitempty"`
	FileKey         string           `json:"file_key"`
	FileSize        int64            `json:"file_size"`
	ContentType     string           `json:"content_type"`
	Analysis        *ReceiptAnalysis `json:"analysis,omitempty"`
	IsProcessed     bool             `json:"is_processed"`
	ProcessingError string           `json:"processing_error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r Receipt) Record() dyndb.Record {
	rec := dyndb.Record{
		"id":           r.ID,
		"type":         "receipt",
		"user_id":      r.UserID,
		"file_key":     r.FileKey,
		"file_size":    r.FileSize,
		"content_type": r.ContentType,
		"is_processed": r.IsProcessed,
	}
	if r.ExpenseID != "" {
		rec["expense_id"] = r.ExpenseID
	}
	if r.Analysis != nil {
		rec["analysis"] = r.Analysis.Record()
	}
	if r.ProcessingError != "" {
		rec["processing_error"] = r.ProcessingError
	}
	return rec
}

func ReceiptFromRecord(rec dyndb.Record) Receipt {
	receipt := Receipt{
		ID:              recString(rec, "id"),
		UserID:          recString(rec, "user_id"),
		ExpenseID:       recString(rec, "expense_id"),
		FileKey:         recString(rec, "file_key"),
		FileSize:        int64(recFloat(rec, "file_size")),
		ContentType:     recString(rec, "content_type"),
		IsProcessed:     recBool(rec, "is_processed"),
		ProcessingError: recString(rec, "processing_error"),
		CreatedAt:       recTime(rec, "created_at"),
		UpdatedAt:       recTime(rec, "updated_at"),
	}
	if analysis := recMap(rec, "analysis"); analysis != nil {
		receipt.Analysis = analysisFromRecord(analysis)
	}
	return receipt
}

func toAnySlice(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func toStringMap(v any) map[string]any {
	switch m := v.(type) {
	case dyndb.Record:
		return map[string]any(m)
	case map[string]any:
		return m
	}
	return nil
}
