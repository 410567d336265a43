package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplement-safety/backend/internal/catalog"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(encodePNG(t, solid(10, 20, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPreprocessLayout(t *testing.T) {
	src := solid(50, 30, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	out := Preprocess(src, 4)
	require.Len(t, out, 3*4*4)

	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, out[i], 1e-6)
		assert.InDelta(t, 0.0, out[16+i], 1e-6)
		assert.InDelta(t, 0.2, out[32+i], 1e-6)
	}
}

func TestPreprocessDefaultSize(t *testing.T) {
	out := Preprocess(solid(8, 8, color.Black), 0)
	assert.Len(t, out, 3*DefaultInputSize*DefaultInputSize)
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		expect int
	}{
		{"empty", nil, -1},
		{"single", []float32{0.3}, 0},
		{"last", []float32{-1, 0, 5}, 2},
		{"first tie wins", []float32{1, 3, 3, 2}, 1},
		{"negative", []float32{-4, -2, -3}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Argmax(tc.scores))
		})
	}
}

type fakeDetector struct {
	out   *rekognition.DetectTextOutput
	err   error
	calls int
}

func (f *fakeDetector) DetectText(_ context.Context, params *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.calls++
	if params.Image == nil || len(params.Image.Bytes) == 0 {
		return nil, errors.New("missing image bytes")
	}
	return f.out, f.err
}

func line(text string, confidence float32) types.TextDetection {
	return types.TextDetection{
		DetectedText: aws.String(text),
		Type:         types.TextTypesLine,
		Confidence:   aws.Float32(confidence),
	}
}

func TestTextClassifier(t *testing.T) {
	cat := catalog.Default()
	img := solid(16, 16, color.White)

	t.Run("matches alias across lines", func(t *testing.T) {
		fake := &fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
			line("NATURE'S BEST", 99),
			line("Magnesium", 95),
			{DetectedText: aws.String("Magnesium"), Type: types.TextTypesWord},
		}}}
		label, err := newTextClassifier(fake, cat).Classify(context.Background(), img)
		require.NoError(t, err)
		assert.Equal(t, "마그네슘", label.Name)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("low confidence lines ignored", func(t *testing.T) {
		fake := &fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
			line("magnesium", 20),
		}}}
		_, err := newTextClassifier(fake, cat).Classify(context.Background(), img)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("unknown text", func(t *testing.T) {
		fake := &fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
			line("dish soap", 99),
		}}}
		_, err := newTextClassifier(fake, cat).Classify(context.Background(), img)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("detector failure", func(t *testing.T) {
		fake := &fakeDetector{err: errors.New("throttled")}
		_, err := newTextClassifier(fake, cat).Classify(context.Background(), img)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoMatch)
	})
}

func TestAcceleratorByDefault(t *testing.T) {
	assert.True(t, Config{}.wantsAccelerator())
	assert.False(t, Config{DisableCUDA: true}.wantsAccelerator())
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "tesseract"}, catalog.Default())
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Backend: BackendONNX}, catalog.Default())
	assert.Error(t, err, "model path is required")
}
