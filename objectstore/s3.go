// Package objectstore wraps the S3 calls used for receipt images.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the slice of the S3 API the bucket wrapper needs.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Bucket stores and retrieves receipt images.
type Bucket struct {
	client S3Client
	name   string
}

func NewBucket(client S3Client, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

func (b *Bucket) Name() string { return b.name }

// UploadKey builds the object key for a new receipt upload:
// uploads/{userID}/{yyyy/mm/dd}/{filename}.
func UploadKey(userID, filename string, when time.Time) string {
	return fmt.Sprintf("uploads/%s/%s/%s", userID, when.UTC().Format("2006/01/02"), filename)
}

// ParseUploadKey extracts the owning user id from an upload key. The
// image processor uses this to scope its receipt lookup.
func ParseUploadKey(key string) (userID, filename string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 5 || parts[0] != "uploads" || parts[1] == "" {
		return "", "", fmt.Errorf("objectstore: unexpected upload key format: %s", key)
	}
	return parts[1], parts[len(parts)-1], nil
}

// Put uploads an object under the given key.
func (b *Bucket) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

// Get downloads an object's full contents.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object. Missing keys are not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s: %w", key, err)
	}
	return nil
}
