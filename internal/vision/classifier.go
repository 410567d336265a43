package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"supplement-safety/backend/internal/catalog"
)

// Backend names accepted by Config.Backend.
const (
	BackendONNX        = "onnx"
	BackendRekognition = "rekognition"
)

// ErrNoMatch is returned when a classifier cannot map the image to any catalog label.
var ErrNoMatch = errors.New("no supplement label recognized")

// Classifier maps a decoded image to a supplement label.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (catalog.Label, error)
	Name() string
}

// Config selects and configures the classifier backend.
type Config struct {
	Backend     string
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	InputSize   int
	DisableCUDA bool
	AWSRegion   string
}

// wantsAccelerator reports whether the ONNX session should try the CUDA provider. It is
// attempted unless disabled; a missing GPU falls back to CPU.
func (c Config) wantsAccelerator() bool {
	return !c.DisableCUDA
}

// New builds the configured classifier. The returned value may implement io.Closer.
func New(ctx context.Context, cfg Config, cat *catalog.Catalog) (Classifier, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendONNX:
		return NewONNXClassifier(cfg, cat)
	case BackendRekognition:
		return NewTextClassifier(ctx, cfg, cat)
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}
