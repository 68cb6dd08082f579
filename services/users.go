// Package services implements the business operations on top of the
// dyndb table store and the external oracles (Cognito, S3, OCR, LLM).
// Every service validates its input before touching storage.
package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/auth"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
)

// IdentityProvider is the slice of the Cognito wrapper the user
// service needs.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (auth.Tokens, error)
	CreateUser(ctx context.Context, user auth.NewUser) (string, error)
	GetUser(ctx context.Context, username string) (auth.CognitoUser, error)
	RefreshToken(ctx context.Context, refreshToken string) (auth.Tokens, error)
}

// UserService registers and authenticates accounts. Identity lives in
// Cognito; the profile record mirrored into the table is what the rest
// of the system joins against.
type UserService struct {
	store dyndb.Store
	idp   IdentityProvider
	valid *validator.Validate
	log   zerolog.Logger
}

func NewUserService(store dyndb.Store, idp IdentityProvider, log zerolog.Logger) *UserService {
	return &UserService{
		store: store,
		idp:   idp,
		valid: validator.New(),
		log:   log,
	}
}

// Register creates the Cognito identity and mirrors it as a USER
// record keyed pk=sk=USER#<id>.
func (s *UserService) Register(ctx context.Context, req models.RegisterUserRequest) (models.User, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.User{}, fmt.Errorf("services: invalid registration: %w", err)
	}

	userID, err := s.idp.CreateUser(ctx, auth.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:        userID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
	}

	key := models.UserKey(userID)
	rec, err := s.store.Create(ctx, key, key, user.Record())
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", userID).Msg("user registered")
	return models.UserFromRecord(rec), nil
}

// Login authenticates against Cognito and returns the session tokens
// plus the stored user record.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (models.TokenPair, models.User, error) {
	if err := s.valid.Struct(req); err != nil {
		return models.TokenPair{}, models.User{}, fmt.Errorf("services: invalid login: %w", err)
	}

	tokens, err := s.idp.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return models.TokenPair{}, models.User{}, err
	}

	identity, err := s.idp.GetUser(ctx, req.Email)
	if err != nil {
		return models.TokenPair{}, models.User{}, err
	}

	user, err := s.Get(ctx, identity.ID)
	if err != nil {
		return models.TokenPair{}, models.User{}, err
	}

	return models.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    tokens.ExpiresIn,
	}, user, nil
}

// Refresh trades a refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	tokens, err := s.idp.RefreshToken(ctx, refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{
		AccessToken: tokens.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   tokens.ExpiresIn,
	}, nil
}

// Get loads the stored user record.
func (s *UserService) Get(ctx context.Context, userID string) (models.User, error) {
	key := models.UserKey(userID)
	rec, err := s.store.Get(ctx, key, key)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}
