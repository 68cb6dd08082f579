package config_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/pkg/config"
)

type stubSecrets struct {
	payload string
	err     error
}

func (s stubSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(s.payload)}, nil
}

func TestLoad_Defaults(t *testing.T) {
	settings, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "taxless-expenses", settings.DynamoDBTable)
	assert.Equal(t, "taxless-receipts", settings.S3Bucket)
	assert.Equal(t, "CAD", settings.DefaultCurrency)
	assert.Equal(t, 24, settings.JWTExpirationHours)
	assert.Equal(t, "gemini-2.0-flash-exp", settings.LLMModel)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DYNAMODB_TABLE", "taxless-staging")
	t.Setenv("MAX_FILE_SIZE_MB", "25")

	settings, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "taxless-staging", settings.DynamoDBTable)
	assert.Equal(t, 25, settings.MaxFileSizeMB)
}

func TestHydrateSecrets_FillsMissingValues(t *testing.T) {
	settings := config.Settings{SecretsName: "taxless/prod"}

	err := settings.HydrateSecrets(context.Background(), stubSecrets{
		payload: `{"google_api_key": "gk-1", "jwt_secret": "js-1"}`,
	})

	require.NoError(t, err)
	assert.Equal(t, "gk-1", settings.GoogleAPIKey)
	assert.Equal(t, "js-1", settings.JWTSecret)
}

func TestHydrateSecrets_EnvValuesWin(t *testing.T) {
	settings := config.Settings{
		SecretsName:  "taxless/prod",
		GoogleAPIKey: "from-env",
	}

	err := settings.HydrateSecrets(context.Background(), stubSecrets{
		payload: `{"google_api_key": "from-secret"}`,
	})

	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.GoogleAPIKey)
}

func TestHydrateSecrets_NoSecretNameIsNoop(t *testing.T) {
	settings := config.Settings{}

	err := settings.HydrateSecrets(context.Background(), stubSecrets{
		err: assert.AnError,
	})

	require.NoError(t, err)
}
