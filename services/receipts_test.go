package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/ai"
	"github.com/raywall/taxless-service/dyndb"
	"github.com/raywall/taxless-service/models"
	"github.com/raywall/taxless-service/services"
)

type stubBucket struct {
	putKey  string
	putType string
	putBody []byte
	putErr  error

	getBody []byte
	getErr  error
}

func (b *stubBucket) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.putKey = key
	b.putType = contentType
	b.putBody, _ = io.ReadAll(body)
	return nil
}

func (b *stubBucket) Get(ctx context.Context, key string) ([]byte, error) {
	return b.getBody, b.getErr
}

type stubDetector struct {
	lines []string
	err   error
}

func (d *stubDetector) DetectText(ctx context.Context, imageBytes []byte) (ai.OCRResult, error) {
	if d.err != nil {
		return ai.OCRResult{}, d.err
	}
	result := ai.OCRResult{}
	for _, line := range d.lines {
		result.Blocks = append(result.Blocks, ai.TextBlock{Text: line, Confidence: 99})
	}
	return result, nil
}

type stubReceiptAnalyzer struct {
	gotText     string
	gotMetadata map[string]any
	analysis    models.ReceiptAnalysis
}

func (a *stubReceiptAnalyzer) AnalyzeReceipt(ctx context.Context, ocrText string, metadata map[string]any) models.ReceiptAnalysis {
	a.gotText = ocrText
	a.gotMetadata = metadata
	return a.analysis
}

func TestUpload_RejectsUnsupportedContentType(t *testing.T) {
	t.Parallel()

	svc := services.NewReceiptService(&dyndb.MockStore{}, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	_, err := svc.Upload(context.Background(), "u-1", "doc.pdf", "application/pdf", []byte("data"), "")
	assert.ErrorIs(t, err, services.ErrUnsupportedImage)
}

func TestUpload_RejectsOversizedImage(t *testing.T) {
	t.Parallel()

	svc := services.NewReceiptService(&dyndb.MockStore{}, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 1, nil, zerolog.Nop())

	big := make([]byte, 1024*1024+1)
	_, err := svc.Upload(context.Background(), "u-1", "big.jpg", "image/jpeg", big, "")
	assert.ErrorIs(t, err, services.ErrImageTooLarge)
}

func TestUpload_StoresObjectAndRecord(t *testing.T) {
	t.Parallel()

	bucket := &stubBucket{}
	var createdPK, createdSK string
	var createdAttrs dyndb.Record
	store := &dyndb.MockStore{
		CreateFn: func(ctx context.Context, pk, sk string, attrs dyndb.Record) (dyndb.Record, error) {
			createdPK, createdSK = pk, sk
			createdAttrs = attrs
			return attrs, nil
		},
	}

	svc := services.NewReceiptService(store, bucket, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	receipt, err := svc.Upload(context.Background(), "u-1", "lunch.jpg", "image/jpeg", []byte("jpeg bytes"), "e-1")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bucket.putKey, "uploads/u-1/"))
	assert.True(t, strings.HasSuffix(bucket.putKey, "/lunch.jpg"))
	assert.Equal(t, "image/jpeg", bucket.putType)
	assert.Equal(t, []byte("jpeg bytes"), bucket.putBody)
	assert.Equal(t, "USER#u-1", createdPK)
	assert.Equal(t, "RECEIPT#u-1#"+receipt.ID, createdSK)
	assert.Equal(t, false, createdAttrs["is_processed"])
	assert.Equal(t, "e-1", receipt.ExpenseID)
	assert.Equal(t, int64(10), receipt.FileSize)
	assert.False(t, receipt.IsProcessed)
}

func TestFindByFileKey_NoMatch(t *testing.T) {
	t.Parallel()

	store := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			return dyndb.Page{}, nil
		},
	}

	svc := services.NewReceiptService(store, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	_, err := svc.FindByFileKey(context.Background(), "uploads/u-1/2024/06/15/lunch.jpg")
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
}

func TestFindByFileKey_MatchOnLaterPage(t *testing.T) {
	t.Parallel()

	// The file_key filter applies after the page bound, so an earlier
	// page can come back empty while the match sits on the next one.
	calls := 0
	store := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			calls++
			if calls == 1 {
				return dyndb.Page{HasMore: true, NextToken: "page-2"}, nil
			}
			return dyndb.Page{
				Items: []dyndb.Record{{
					"id":       "r-1",
					"user_id":  "u-1",
					"file_key": "uploads/u-1/2024/06/15/lunch.jpg",
				}},
				Count: 1,
			}, nil
		},
	}

	svc := services.NewReceiptService(store, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	receipt, err := svc.FindByFileKey(context.Background(), "uploads/u-1/2024/06/15/lunch.jpg")

	require.NoError(t, err)
	assert.Equal(t, "r-1", receipt.ID)
	assert.Equal(t, 2, calls)
}

func TestReceiptList_DrainsAllPages(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			calls++
			if calls == 1 {
				return dyndb.Page{
					Items:     []dyndb.Record{{"id": "r-1", "user_id": "u-1"}},
					Count:     1,
					HasMore:   true,
					NextToken: "page-2",
				}, nil
			}
			return dyndb.Page{
				Items: []dyndb.Record{{"id": "r-2", "user_id": "u-1"}},
				Count: 1,
			}, nil
		},
	}

	svc := services.NewReceiptService(store, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	receipts, err := svc.List(context.Background(), "u-1")

	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "r-1", receipts[0].ID)
	assert.Equal(t, "r-2", receipts[1].ID)
	assert.Equal(t, 2, calls)
}

func TestFindByFileKey_RejectsForeignKeys(t *testing.T) {
	t.Parallel()

	svc := services.NewReceiptService(&dyndb.MockStore{}, &stubBucket{}, &stubDetector{}, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	_, err := svc.FindByFileKey(context.Background(), "thumbnails/u-1/lunch.jpg")
	assert.Error(t, err)
}

func TestProcess_RunsPipeline(t *testing.T) {
	t.Parallel()

	total := 45.90
	bucket := &stubBucket{getBody: []byte("image")}
	detector := &stubDetector{lines: []string{"PIZZA PLACE", "TOTAL 45.90"}}
	analyzer := &stubReceiptAnalyzer{analysis: models.ReceiptAnalysis{
		MerchantName:    "Pizza Place",
		TotalAmount:     &total,
		Currency:        models.CAD,
		ConfidenceScore: 0.9,
		RawText:         "PIZZA PLACE TOTAL 45.90",
	}}

	var gotUpdates dyndb.Record
	store := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			return dyndb.Page{
				Items: []dyndb.Record{{
					"id":           "r-1",
					"user_id":      "u-1",
					"file_key":     "uploads/u-1/2024/06/15/lunch.jpg",
					"file_size":    int64(5),
					"content_type": "image/jpeg",
				}},
				Count: 1,
			}, nil
		},
		UpdateFn: func(ctx context.Context, pk, sk string, updates dyndb.Record) (dyndb.Record, error) {
			gotUpdates = updates
			return dyndb.Record{"id": "r-1", "user_id": "u-1", "is_processed": true}, nil
		},
	}

	svc := services.NewReceiptService(store, bucket, detector, analyzer, 10, nil, zerolog.Nop())

	receipt, err := svc.Process(context.Background(), "uploads/u-1/2024/06/15/lunch.jpg")

	require.NoError(t, err)
	assert.True(t, receipt.IsProcessed)
	assert.Equal(t, "PIZZA PLACE TOTAL 45.90", analyzer.gotText)
	assert.Equal(t, "image/jpeg", analyzer.gotMetadata["content_type"])
	assert.Equal(t, true, gotUpdates["is_processed"])
	require.NotNil(t, gotUpdates["analysis"])
	analysis := gotUpdates["analysis"].(dyndb.Record)
	assert.Equal(t, "Pizza Place", analysis["merchant_name"])
}

func TestProcess_WritesFailureBackToRecord(t *testing.T) {
	t.Parallel()

	bucket := &stubBucket{getBody: []byte("image")}
	detector := &stubDetector{err: errors.New("rekognition throttled")}

	var gotUpdates dyndb.Record
	store := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			return dyndb.Page{
				Items: []dyndb.Record{{
					"id":       "r-1",
					"user_id":  "u-1",
					"file_key": "uploads/u-1/2024/06/15/lunch.jpg",
				}},
				Count: 1,
			}, nil
		},
		UpdateFn: func(ctx context.Context, pk, sk string, updates dyndb.Record) (dyndb.Record, error) {
			gotUpdates = updates
			return updates, nil
		},
	}

	svc := services.NewReceiptService(store, bucket, detector, &stubReceiptAnalyzer{}, 10, nil, zerolog.Nop())

	_, err := svc.Process(context.Background(), "uploads/u-1/2024/06/15/lunch.jpg")

	require.Error(t, err)
	assert.Equal(t, false, gotUpdates["is_processed"])
	assert.Contains(t, gotUpdates["processing_error"], "rekognition throttled")
}
