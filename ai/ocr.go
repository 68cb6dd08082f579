// Package ai holds the receipt OCR and language-model oracles. Both are
// treated as unreliable: every caller gets a usable result even when
// the upstream service fails or returns garbage.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionClient is the slice of the Rekognition API the OCR
// service needs.
type RekognitionClient interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// TextBlock is one detected line of text.
type TextBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCRResult is the line-level text pulled from a receipt image.
type OCRResult struct {
	Blocks []TextBlock `json:"text_blocks"`
}

// FullText joins the detected lines with spaces, the form the language
// model prompt expects.
func (r OCRResult) FullText() string {
	lines := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		lines = append(lines, b.Text)
	}
	return strings.Join(lines, " ")
}

// OCR extracts text from receipt images via Rekognition.
type OCR struct {
	client RekognitionClient
}

func NewOCR(client RekognitionClient) *OCR {
	return &OCR{client: client}
}

// DetectText runs text detection and keeps only LINE detections. WORD
// detections duplicate the line content and are dropped.
func (o *OCR) DetectText(ctx context.Context, imageBytes []byte) (OCRResult, error) {
	out, err := o.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return OCRResult{}, fmt.Errorf("ai: detect text: %w", err)
	}

	result := OCRResult{}
	for _, detection := range out.TextDetections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		block := TextBlock{}
		if detection.DetectedText != nil {
			block.Text = *detection.DetectedText
		}
		if detection.Confidence != nil {
			block.Confidence = float64(*detection.Confidence)
		}
		result.Blocks = append(result.Blocks, block)
	}
	return result, nil
}
