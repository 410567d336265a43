package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"supplement-safety/backend/internal/catalog"
)

type textDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// TextClassifier reads the printed text on a supplement package with Rekognition and
// matches it against catalog aliases.
type TextClassifier struct {
	client        textDetector
	cat           *catalog.Catalog
	minConfidence float32
}

// NewTextClassifier loads the default AWS credential chain.
func NewTextClassifier(ctx context.Context, cfg Config, cat *catalog.Catalog) (*TextClassifier, error) {
	opts := []func(*config.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.AWSRegion); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newTextClassifier(rekognition.NewFromConfig(awsCfg), cat), nil
}

func newTextClassifier(client textDetector, cat *catalog.Catalog) *TextClassifier {
	return &TextClassifier{client: client, cat: cat, minConfidence: 70}
}

// Name identifies the OCR backend in logs and history rows.
func (c *TextClassifier) Name() string {
	return "rekognition-text"
}

// Classify sends the image as JPEG and resolves the detected lines to a label.
func (c *TextClassifier) Classify(ctx context.Context, img image.Image) (catalog.Label, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return catalog.Label{}, fmt.Errorf("encode image: %w", err)
	}

	out, err := c.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: buf.Bytes()},
	})
	if err != nil {
		return catalog.Label{}, fmt.Errorf("detect text: %w", err)
	}

	var lines []string
	for _, detection := range out.TextDetections {
		if detection.Type != types.TextTypesLine || detection.DetectedText == nil {
			continue
		}
		if detection.Confidence != nil && *detection.Confidence < c.minConfidence {
			continue
		}
		lines = append(lines, aws.ToString(detection.DetectedText))
	}
	if len(lines) == 0 {
		return catalog.Label{}, ErrNoMatch
	}

	label, ok := c.cat.MatchAlias(strings.Join(lines, " "))
	if !ok {
		return catalog.Label{}, ErrNoMatch
	}
	return label, nil
}
