package services_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/auth"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
	"github.com/raywall/taxless-service/services"
)

type stubIdentity struct {
	authenticateTokens auth.Tokens
	authenticateErr    error
	createdUserID      string
	createErr          error
	createdUsers       []auth.NewUser
	getUser            auth.CognitoUser
	getErr             error
	refreshTokens      auth.Tokens
	refreshErr         error
}

func (s *stubIdentity) Authenticate(ctx context.Context, email, password string) (auth.Tokens, error) {
	return s.authenticateTokens, s.authenticateErr
}

func (s *stubIdentity) CreateUser(ctx context.Context, user auth.NewUser) (string, error) {
	s.createdUsers = append(s.createdUsers, user)
	return s.createdUserID, s.createErr
}

func (s *stubIdentity) GetUser(ctx context.Context, username string) (auth.CognitoUser, error) {
	return s.getUser, s.getErr
}

func (s *stubIdentity) RefreshToken(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	return s.refreshTokens, s.refreshErr
}

func TestRegister_CreatesIdentityAndRecord(t *testing.T) {
	t.Parallel()

	idp := &stubIdentity{createdUserID: "u-1"}
	var createdPK, createdSK string
	var createdAttrs dyndb.Record
	store := &dyndb.MockStore{
		CreateFn: func(ctx context.Context, pk, sk string, attrs dyndb.Record) (dyndb.Record, error) {
			createdPK, createdSK, createdAttrs = pk, sk, attrs
			return attrs, nil
		},
	}

	svc := services.NewUserService(store, idp, zerolog.Nop())
	user, err := svc.Register(context.Background(), models.RegisterUserRequest{
		Email:     "jane@example.com",
		Password:  "password123",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.True(t, user.IsActive)

	// The user record lives at pk=sk=USER#<id>.
	assert.Equal(t, "USER#u-1", createdPK)
	assert.Equal(t, "USER#u-1", createdSK)
	assert.Equal(t, "jane@example.com", createdAttrs["email"])
	assert.Equal(t, true, createdAttrs["is_active"])

	require.Len(t, idp.createdUsers, 1)
	assert.Equal(t, "Jane", idp.createdUsers[0].FirstName)
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	t.Parallel()

	svc := services.NewUserService(&dyndb.MockStore{}, &stubIdentity{}, zerolog.Nop())

	_, err := svc.Register(context.Background(), models.RegisterUserRequest{
		Email:     "jane@example.com",
		Password:  "short",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	assert.Error(t, err)
}

func TestLogin_ReturnsTokensAndUser(t *testing.T) {
	t.Parallel()

	idp := &stubIdentity{
		authenticateTokens: auth.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600},
		getUser:            auth.CognitoUser{ID: "u-1", Email: "jane@example.com"},
	}
	store := &dyndb.MockStore{
		GetFn: func(ctx context.Context, pk, sk string) (dyndb.Record, error) {
			assert.Equal(t, "USER#u-1", pk)
			return dyndb.Record{"id": "u-1", "email": "jane@example.com", "is_active": true}, nil
		},
	}

	svc := services.NewUserService(store, idp, zerolog.Nop())
	tokens, user, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "jane@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.Equal(t, "u-1", user.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	idp := &stubIdentity{authenticateErr: auth.ErrInvalidCredentials}
	svc := services.NewUserService(&dyndb.MockStore{}, idp, zerolog.Nop())

	_, _, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong",
	})

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestGet_UnknownUser(t *testing.T) {
	t.Parallel()

	svc := services.NewUserService(&dyndb.MockStore{}, &stubIdentity{}, zerolog.Nop())

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
}
