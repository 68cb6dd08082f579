package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
)

// ProfileService manages tax profiles inside a user's partition.
type ProfileService struct {
	store dyndb.Store
	valid *validator.Validate
	log   zerolog.Logger
}

func NewProfileService(store dyndb.Store, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		store: store,
		valid: validator.New(),
		log:   log,
	}
}

// Create stores a new tax profile for the user. The default currency
// falls back to CAD when the request leaves it empty.
func (s *ProfileService) Create(ctx context.Context, userID string, req models.CreateProfileRequest) (models.TaxProfile, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.TaxProfile{}, fmt.Errorf("services: invalid profile: %w", err)
	}

	profile := models.TaxProfile{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            req.Name,
		ProfileType:     req.ProfileType,
		DefaultCurrency: req.DefaultCurrency,
		TaxYear:         req.TaxYear,
		BusinessNumber:  req.BusinessNumber,
		Address:         req.Address,
		Description:     req.Description,
	}
	if profile.DefaultCurrency == "" {
		profile.DefaultCurrency = models.CAD
	}

	rec, err := s.store.Create(ctx, models.UserKey(userID), models.ProfileKey(userID, profile.ID), profile.Record())
	if err != nil {
		return models.TaxProfile{}, err
	}

	s.log.Info().Str("user_id", userID).Str("profile_id", profile.ID).Msg("tax profile created")
	return models.ProfileFromRecord(rec), nil
}

// Get loads one profile.
func (s *ProfileService) Get(ctx context.Context, userID, profileID string) (models.TaxProfile, error) {
	rec, err := s.store.Get(ctx, models.UserKey(userID), models.ProfileKey(userID, profileID))
	if err != nil {
		return models.TaxProfile{}, err
	}
	return models.ProfileFromRecord(rec), nil
}

// List returns every profile in the user's partition via a sort-key
// prefix query, draining all pages.
func (s *ProfileService) List(ctx context.Context, userID string) ([]models.TaxProfile, error) {
	var profiles []models.TaxProfile
	token := ""
	for {
		qb := s.store.Query().
			Partition(models.UserKey(userID)).
			SortBeginsWith(models.UserProfilesPrefix(userID))
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			profiles = append(profiles, models.ProfileFromRecord(rec))
		}
		if !page.HasMore {
			return profiles, nil
		}
		token = page.NextToken
	}
}

// Update applies the non-nil request fields. dyndb.ErrNotFound comes
// back when the profile does not exist.
func (s *ProfileService) Update(ctx context.Context, userID, profileID string, req models.UpdateProfileRequest) (models.TaxProfile, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.TaxProfile{}, fmt.Errorf("services: invalid profile update: %w", err)
	}

	updates := dyndb.Record{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ProfileType != nil {
		updates["profile_type"] = string(*req.ProfileType)
	}
	if req.DefaultCurrency != nil {
		updates["default_currency"] = string(*req.DefaultCurrency)
	}
	if req.BusinessNumber != nil {
		updates["business_number"] = *req.BusinessNumber
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	rec, err := s.store.Update(ctx, models.UserKey(userID), models.ProfileKey(userID, profileID), updates)
	if err != nil {
		return models.TaxProfile{}, err
	}
	return models.ProfileFromRecord(rec), nil
}

// Delete removes a profile. Its expenses stay in the table.
func (s *ProfileService) Delete(ctx context.Context, userID, profileID string) error {
	return s.store.Delete(ctx, models.UserKey(userID), models.ProfileKey(userID, profileID))
}
