package main

import (
	"context"
	"log"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/ai"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/objectstore"
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
	lambdaStarter(handler.Handle)
}

type s3EventHandler struct {
	receipts *services.ReceiptService
	log      zerolog.Logger
}

// Handle processes every object the S3 notification carries. One bad
// object does not fail the batch; its error lands on the receipt
// record instead.
func (h *s3EventHandler) Handle(ctx context.Context, event events.S3Event) error {
	for _, rec := range event.Records {
		// S3 notification keys arrive URL-encoded.
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}

		h.log.Info().Str("bucket", rec.S3.Bucket.Name).Str("key", key).Msg("processing uploaded object")
		if _, err := h.receipts.Process(ctx, key); err != nil {
			h.log.Error().Err(err).Str("key", key).Msg("object processing failed")
		}
	}
	return nil
}

func buildHandler(ctx context.Context) (*s3EventHandler, error) {
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
		Service: "image-processor",
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
	bucket := objectstore.NewBucket(s3.NewFromConfig(awsCfg), settings.S3Bucket)
	ocr := ai.NewOCR(rekognition.NewFromConfig(awsCfg))
	analyzer := ai.NewAnalyzer(llm, logg)

	receipts := services.NewReceiptService(store, bucket, ocr, analyzer, settings.MaxFileSizeMB, stats, logg)
	return &s3EventHandler{receipts: receipts, log: logg}, nil
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
