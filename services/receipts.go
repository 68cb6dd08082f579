package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raywall/taxless-service/ai"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
	"github.com/raywall/taxless-service/objectstore"
	"github.com/raywall/taxless-service/pkg/metrics"
)

// ErrUnsupportedImage rejects uploads outside the allowed content
// types.
var ErrUnsupportedImage = errors.New("services: unsupported image type")

// ErrImageTooLarge rejects uploads over the configured size cap.
var ErrImageTooLarge = errors.New("services: image exceeds size limit")

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
}

// ImageBucket is the slice of the object store the receipt service
// needs.
type ImageBucket interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// TextDetector extracts text from a receipt image.
type TextDetector interface {
	DetectText(ctx context.Context, imageBytes []byte) (ai.OCRResult, error)
}

// ReceiptAnalyzer turns OCR text into a structured receipt analysis.
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, ocrText string, metadata map[string]any) models.ReceiptAnalysis
}

// ReceiptService handles receipt uploads and the OCR-plus-LLM
// processing pipeline triggered by S3 events.
type ReceiptService struct {
	store    dyndb.Store
	bucket   ImageBucket
	ocr      TextDetector
	analyzer ReceiptAnalyzer
	maxBytes int64
	stats    metrics.Provider
	log      zerolog.Logger
	now      func() time.Time
}

func NewReceiptService(store dyndb.Store, bucket ImageBucket, ocr TextDetector, analyzer ReceiptAnalyzer, maxSizeMB int, stats metrics.Provider, log zerolog.Logger) *ReceiptService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if stats == nil {
		stats = metrics.Noop{}
	}
	return &ReceiptService{
		store:    store,
		bucket:   bucket,
		ocr:      ocr,
		analyzer: analyzer,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		stats:    stats,
		log:      log,
		now:      time.Now,
	}
}

// Upload stores the image in S3 and creates the receipt record that
// the image processor later fills in.
func (s *ReceiptService) Upload(ctx context.Context, userID, filename, contentType string, data []byte, expenseID string) (models.Receipt, error) {
	if !supportedImageTypes[contentType] {
		return models.Receipt{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	if int64(len(data)) > s.maxBytes {
		return models.Receipt{}, ErrImageTooLarge
	}

	fileKey := objectstore.UploadKey(userID, filename, s.now().UTC())
	if err := s.bucket.Put(ctx, fileKey, contentType, bytes.NewReader(data)); err != nil {
		return models.Receipt{}, err
	}

	receipt := models.Receipt{
		ID:          uuid.NewString(),
		UserID:      userID,
		ExpenseID:   expenseID,
		FileKey:     fileKey,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		IsProcessed: false,
	}

	rec, err := s.store.Create(ctx, models.UserKey(userID), models.ReceiptKey(userID, receipt.ID), receipt.Record())
	if err != nil {
		return models.Receipt{}, err
	}

	s.stats.Count("receipts.uploaded", 1, nil)
	s.log.Info().Str("user_id", userID).Str("receipt_id", receipt.ID).Str("file_key", fileKey).Msg("receipt uploaded")
	return models.ReceiptFromRecord(rec), nil
}

// Get loads one receipt.
func (s *ReceiptService) Get(ctx context.Context, userID, receiptID string) (models.Receipt, error) {
	rec, err := s.store.Get(ctx, models.UserKey(userID), models.ReceiptKey(userID, receiptID))
	if err != nil {
		return models.Receipt{}, err
	}
	return models.ReceiptFromRecord(rec), nil
}

// List returns every receipt in the user's partition, draining all
// pages.
func (s *ReceiptService) List(ctx context.Context, userID string) ([]models.Receipt, error) {
	var receipts []models.Receipt
	token := ""
	for {
		qb := s.store.Query().
			Partition(models.UserKey(userID)).
			SortBeginsWith(models.UserReceiptsPrefix(userID))
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			receipts = append(receipts, models.ReceiptFromRecord(rec))
		}
		if !page.HasMore {
			return receipts, nil
		}
		token = page.NextToken
	}
}

// FindByFileKey locates the receipt record an S3 object belongs to.
// The partition comes from the upload key layout, so the lookup stays
// a single-partition query.
func (s *ReceiptService) FindByFileKey(ctx context.Context, fileKey string) (models.Receipt, error) {
	userID, _, err := objectstore.ParseUploadKey(fileKey)
	if err != nil {
		return models.Receipt{}, err
	}

	// The filter applies after the page bound, so a match can sit on a
	// later page even when earlier ones come back empty.
	token := ""
	for {
		qb := s.store.Query().
			Partition(models.UserKey(userID)).
			SortBeginsWith(models.UserReceiptsPrefix(userID)).
			FilterEqual("file_key", fileKey)
		if token != "" {
			qb.StartToken(token)
		}

		page, err := qb.Exec(ctx)
		if err != nil {
			return models.Receipt{}, err
		}
		if len(page.Items) > 0 {
			return models.ReceiptFromRecord(page.Items[0]), nil
		}
		if !page.HasMore {
			return models.Receipt{}, dyndb.ErrNotFound
		}
		token = page.NextToken
	}
}

// Process runs the full pipeline for an uploaded object: download,
// OCR, LLM analysis, then mark the receipt processed. Failures are
// written back onto the record so the upload is never silently stuck.
func (s *ReceiptService) Process(ctx context.Context, fileKey string) (models.Receipt, error) {
	receipt, err := s.FindByFileKey(ctx, fileKey)
	if err != nil {
		return models.Receipt{}, err
	}

	processed, err := s.process(ctx, receipt)
	if err != nil {
		s.stats.Count("receipts.processing_failures", 1, nil)
		s.log.Error().Err(err).Str("receipt_id", receipt.ID).Msg("receipt processing failed")
		s.recordFailure(ctx, receipt, err)
		return models.Receipt{}, err
	}

	s.stats.Count("receipts.processed", 1, nil)
	return processed, nil
}

func (s *ReceiptService) process(ctx context.Context, receipt models.Receipt) (models.Receipt, error) {
	imageBytes, err := s.bucket.Get(ctx, receipt.FileKey)
	if err != nil {
		return models.Receipt{}, err
	}

	ocrResult, err := s.ocr.DetectText(ctx, imageBytes)
	if err != nil {
		return models.Receipt{}, err
	}

	analysis := s.analyzer.AnalyzeReceipt(ctx, ocrResult.FullText(), map[string]any{
		"file_size":    receipt.FileSize,
		"content_type": receipt.ContentType,
	})

	rec, err := s.store.Update(ctx, models.UserKey(receipt.UserID), models.ReceiptKey(receipt.UserID, receipt.ID), dyndb.Record{
		"analysis":     analysis.Record(),
		"is_processed": true,
		"processed_at": s.now().UTC(),
	})
	if err != nil {
		return models.Receipt{}, err
	}
	return models.ReceiptFromRecord(rec), nil
}

func (s *ReceiptService) recordFailure(ctx context.Context, receipt models.Receipt, cause error) {
	_, err := s.store.Update(ctx, models.UserKey(receipt.UserID), models.ReceiptKey(receipt.UserID, receipt.ID), dyndb.Record{
		"is_processed":     false,
		"processing_error": cause.Error(),
		"processed_at":     s.now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("receipt_id", receipt.ID).Msg("failed to record processing error")
	}
}
