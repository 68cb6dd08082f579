package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/ai"
)

type MockRekognitionClient struct {
	mock.Mock
}

func (m *MockRekognitionClient) DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rekognition.DetectTextOutput), args.Error(1)
}

func TestDetectText_KeepsOnlyLines(t *testing.T) {
	t.Parallel()

	mockClient := &MockRekognitionClient{}
	mockClient.On("DetectText", mock.Anything, mock.MatchedBy(func(in *rekognition.DetectTextInput) bool {
		return len(in.Image.Bytes) > 0
	})).Return(&rekognition.DetectTextOutput{
		TextDetections: []types.TextDetection{
			{Type: types.TextTypesLine, DetectedText: aws.String("TIM HORTONS"), Confidence: aws.Float32(99.1)},
			{Type: types.TextTypesWord, DetectedText: aws.String("TIM"), Confidence: aws.Float32(99.0)},
			{Type: types.TextTypesLine, DetectedText: aws.String("TOTAL $12.45"), Confidence: aws.Float32(97.4)},
		},
	}, nil)

	result, err := ai.NewOCR(mockClient).DetectText(context.Background(), []byte("image-bytes"))

	require.NoError(t, err)
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, "TIM HORTONS", result.Blocks[0].Text)
	assert.InDelta(t, 99.1, result.Blocks[0].Confidence, 0.01)
	assert.Equal(t, "TIM HORTONS TOTAL $12.45", result.FullText())
}

func TestDetectText_PropagatesErrors(t *testing.T) {
	t.Parallel()

	mockClient := &MockRekognitionClient{}
	mockClient.On("DetectText", mock.Anything, mock.Anything).
		Return(nil, errors.New("image too large"))

	_, err := ai.NewOCR(mockClient).DetectText(context.Background(), []byte("huge"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "image too large")
}
