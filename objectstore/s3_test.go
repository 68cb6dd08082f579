package objectstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/objectstore"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestUploadKeyLayout(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	key := objectstore.UploadKey("u-1", "receipt.jpg", when)

	assert.Equal(t, "uploads/u-1/2024/03/05/receipt.jpg", key)

	userID, filename, err := objectstore.ParseUploadKey(key)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "receipt.jpg", filename)
}

func TestParseUploadKey_RejectsForeignKeys(t *testing.T) {
	t.Parallel()

	_, _, err := objectstore.ParseUploadKey("exports/u-1/report.pdf")
	assert.Error(t, err)

	_, _, err = objectstore.ParseUploadKey("uploads/u-1/receipt.jpg")
	assert.Error(t, err)
}

func TestBucketPutAndGet(t *testing.T) {
	t.Parallel()

	mockClient := &MockS3Client{}
	bucket := objectstore.NewBucket(mockClient, "taxless-receipts")

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "taxless-receipts" && *in.Key == "uploads/u-1/2024/03/05/r.jpg" && *in.ContentType == "image/jpeg"
	})).Return(&s3.PutObjectOutput{}, nil)

	err := bucket.Put(context.Background(), "uploads/u-1/2024/03/05/r.jpg", "image/jpeg", bytes.NewReader([]byte("img")))
	require.NoError(t, err)

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Key == "uploads/u-1/2024/03/05/r.jpg"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("img")))}, nil)

	data, err := bucket.Get(context.Background(), "uploads/u-1/2024/03/05/r.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	mockClient.AssertExpectations(t)
}
