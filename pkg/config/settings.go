package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/caarlos0/env/v11"
)

// Settings holds every knob the service reads from the environment.
// Secrets may arrive either directly via env or from Secrets Manager
// when SECRETS_NAME is set.
type Settings struct {
	AWSRegion     string `env:"AWS_REGION" envDefault:"us-east-1"`
	DynamoDBTable string `env:"DYNAMODB_TABLE" envDefault:"taxless-expenses"`
	S3Bucket      string `env:"S3_BUCKET" envDefault:"taxless-receipts"`

	CognitoUserPoolID string `env:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `env:"COGNITO_CLIENT_ID"`

	GoogleAPIKey string `env:"GOOGLE_API_KEY"`

	JWTSecret          string `env:"JWT_SECRET"`
	JWTExpirationHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`

	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"CAD"`
	MaxFileSizeMB   int    `env:"MAX_FILE_SIZE_MB" envDefault:"10"`

	LLMModel     string `env:"LLM_MODEL" envDefault:"gemini-2.0-flash-exp"`
	LLMMaxTokens int    `env:"LLM_MAX_TOKENS" envDefault:"2000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	StatsdAddr string `env:"STATSD_ADDR"`

	// SecretsName is the Secrets Manager secret holding a JSON object
	// with the sensitive values above. Empty means env only.
	SecretsName string `env:"SECRETS_NAME"`
}

// Load parses the environment into Settings.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return s, nil
}

// SecretsClient is the slice of the Secrets Manager API the loader
// needs.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// HydrateSecrets fills the sensitive fields from Secrets Manager when
// SecretsName is set. Values already present in the environment win,
// so local overrides keep working.
func (s *Settings) HydrateSecrets(ctx context.Context, client SecretsClient) error {
	if s.SecretsName == "" {
		return nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretsName),
	})
	if err != nil {
		return fmt.Errorf("config: fetch secret %s: %w", s.SecretsName, err)
	}

	var payload struct {
		GoogleAPIKey string `json:"google_api_key"`
		JWTSecret    string `json:"jwt_secret"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &payload); err != nil {
		return fmt.Errorf("config: decode secret %s: %w", s.SecretsName, err)
	}

	if s.GoogleAPIKey == "" {
		s.GoogleAPIKey = payload.GoogleAPIKey
	}
	if s.JWTSecret == "" {
		s.JWTSecret = payload.JWTSecret
	}
	return nil
}
