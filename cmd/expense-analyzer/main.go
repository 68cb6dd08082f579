package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/ai"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/pkg/config"
	"github.com/raywall/taxless-service/pkg/logger"
	"github.com/raywall/taxless-service/pkg/metrics"
	"github.com/raywall/taxless-service/services"
)

// Injectable for tests.
var lambdaStarter = lambda.Start

func main() {
	handler, err := buildHandler(context.Background())
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	lambdaStarter(handler)
}

// buildHandler wires the scheduled batch analyzer. The handler runs on
// an EventBridge schedule, so the event payload is ignored.
func buildHandler(ctx context.Context) (func(ctx context.Context) (services.BatchResult, error), error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(settings.AWSRegion))
	if err != nil {
		return nil, err
	}

	if err := settings.HydrateSecrets(ctx, secretsmanager.NewFromConfig(awsCfg)); err != nil {
		return nil, err
	}

	logg := logger.Configure(logger.Options{
		Level:   settings.LogLevel,
		Format:  settings.LogFormat,
		Service: "expense-analyzer",
	})

	stats, err := buildStats(settings, logg)
	if err != nil {
		return nil, err
	}

	llm, err := ai.NewGemini(ai.GeminiConfig{
		APIKey:    settings.GoogleAPIKey,
		Model:     settings.LLMModel,
		MaxTokens: settings.LLMMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	store := dyndb.New(dynamodb.NewFromConfig(awsCfg), dyndb.TableConfig{TableName: settings.DynamoDBTable})
	analyzer := services.NewAnalyzerService(store, ai.NewAnalyzer(llm, logg), stats, logg)

	return func(ctx context.Context) (services.BatchResult, error) {
		return analyzer.BatchAnalyze(ctx)
	}, nil
}

func buildStats(settings config.Settings, logg zerolog.Logger) (metrics.Provider, error) {
	if settings.StatsdAddr == "" {
		return metrics.Noop{}, nil
	}
	stats, err := metrics.NewDatadog(settings.StatsdAddr, "taxless")
	if err != nil {
		logg.Warn().Err(err).Msg("statsd unavailable, metrics disabled")
		return metrics.Noop{}, nil
	}
	return stats, nil
}
