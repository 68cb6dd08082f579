// Package auth handles identity: Cognito user lifecycle and the JWT
// session tokens the service issues on top of it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"
)

// ErrInvalidCredentials covers every authentication failure. Callers
// never learn whether the user exists.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// CognitoClient is the slice of the Cognito IDP API the service needs.
type CognitoClient interface {
	AdminInitiateAuth(ctx context.Context, params *cognitoidentityprovider.AdminInitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminInitiateAuthOutput, error)
	AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cognitoidentityprovider.AdminSetUserPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminSetUserPasswordOutput, error)
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	ChangePassword(ctx context.Context, params *cognitoidentityprovider.ChangePasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ChangePasswordOutput, error)
	ForgotPassword(ctx context.Context, params *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cognitoidentityprovider.ConfirmForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
}

// Tokens is the Cognito session material handed back to the client.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int32
}

// CognitoUser is the identity attributes stored in the user pool.
type CognitoUser struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser is the input for user pool registration.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Cognito manages users in an AWS Cognito user pool through the admin
// API.
type Cognito struct {
	client     CognitoClient
	userPoolID string
	clientID   string
	log        zerolog.Logger
}

func NewCognito(client CognitoClient, userPoolID, clientID string, log zerolog.Logger) *Cognito {
	return &Cognito{
		client:     client,
		userPoolID: userPoolID,
		clientID:   clientID,
		log:        log,
	}
}

// Authenticate verifies the email/password pair via the admin auth
// flow. Any Cognito rejection maps to ErrInvalidCredentials.
func (c *Cognito) Authenticate(ctx context.Context, email, password string) (Tokens, error) {
	out, err := c.client.AdminInitiateAuth(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		UserPoolId: aws.String(c.userPoolID),
		ClientId:   aws.String(c.clientID),
		AuthFlow:   types.AuthFlowTypeAdminNoSrpAuth,
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		c.log.Debug().Err(err).Str("email", email).Msg("cognito authentication rejected")
		return Tokens{}, ErrInvalidCredentials
	}
	if out.AuthenticationResult == nil {
		return Tokens{}, ErrInvalidCredentials
	}

	return Tokens{
		AccessToken:  aws.ToString(out.AuthenticationResult.AccessToken),
		RefreshToken: aws.ToString(out.AuthenticationResult.RefreshToken),
		ExpiresIn:    out.AuthenticationResult.ExpiresIn,
	}, nil
}

// CreateUser registers a confirmed user with a permanent password. The
// welcome email is suppressed since the service handles onboarding.
func (c *Cognito) CreateUser(ctx context.Context, user NewUser) (string, error) {
	out, err := c.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(user.Email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
			{Name: aws.String("given_name"), Value: aws.String(user.FirstName)},
			{Name: aws.String("family_name"), Value: aws.String(user.LastName)},
		},
		TemporaryPassword: aws.String(user.Password),
		MessageAction:     types.MessageActionTypeSuppress,
	})
	if err != nil {
		return "", fmt.Errorf("auth: create user: %w", err)
	}

	_, err = c.client.AdminSetUserPassword(ctx, &cognitoidentityprovider.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(user.Email),
		Password:   aws.String(user.Password),
		Permanent:  true,
	})
	if err != nil {
		return "", fmt.Errorf("auth: set permanent password: %w", err)
	}

	return aws.ToString(out.User.Username), nil
}

// GetUser fetches a user's pool attributes by username.
func (c *Cognito) GetUser(ctx context.Context, username string) (CognitoUser, error) {
	out, err := c.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return CognitoUser{}, fmt.Errorf("auth: get user: %w", err)
	}

	attrs := make(map[string]string, len(out.UserAttributes))
	for _, attr := range out.UserAttributes {
		attrs[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}

	user := CognitoUser{
		ID:        aws.ToString(out.Username),
		Email:     attrs["email"],
		FirstName: attrs["given_name"],
		LastName:  attrs["family_name"],
		Phone:     attrs["phone_number"],
		IsActive:  out.UserStatus == types.UserStatusTypeConfirmed,
	}
	if out.UserCreateDate != nil {
		user.CreatedAt = *out.UserCreateDate
	}
	if out.UserLastModifiedDate != nil {
		user.UpdatedAt = *out.UserLastModifiedDate
	}
	return user, nil
}

// RefreshToken trades a refresh token for a fresh access token.
func (c *Cognito) RefreshToken(ctx context.Context, refreshToken string) (Tokens, error) {
	out, err := c.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		ClientId: aws.String(c.clientID),
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return Tokens{}, ErrInvalidCredentials
	}
	if out.AuthenticationResult == nil {
		return Tokens{}, ErrInvalidCredentials
	}

	return Tokens{
		AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
		ExpiresIn:   out.AuthenticationResult.ExpiresIn,
	}, nil
}

// ChangePassword updates the password for the session owner.
func (c *Cognito) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	_, err := c.client.ChangePassword(ctx, &cognitoidentityprovider.ChangePasswordInput{
		AccessToken:      aws.String(accessToken),
		PreviousPassword: aws.String(oldPassword),
		ProposedPassword: aws.String(newPassword),
	})
	if err != nil {
		return fmt.Errorf("auth: change password: %w", err)
	}
	return nil
}

// ForgotPassword starts the reset flow for the given email.
func (c *Cognito) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.client.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
	})
	if err != nil {
		return fmt.Errorf("auth: forgot password: %w", err)
	}
	return nil
}

// ConfirmForgotPassword completes the reset flow with the emailed code.
func (c *Cognito) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	_, err := c.client.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	})
	if err != nil {
		return fmt.Errorf("auth: confirm forgot password: %w", err)
	}
	return nil
}
