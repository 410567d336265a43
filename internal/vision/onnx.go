package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"supplement-safety/backend/internal/catalog"
)

// ONNXClassifier runs the supplement ResNet-18 (30-way head) through ONNX Runtime. The
// session and its tensors are created once and reused; Run calls are serialised.
type ONNXClassifier struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
	cat     *catalog.Catalog
	device  string
}

// NewONNXClassifier loads the model at cfg.ModelPath.
func NewONNXClassifier(cfg Config, cat *catalog.Catalog) (*ONNXClassifier, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("onnx model path required")
	}
	size := cfg.InputSize
	if size <= 0 {
		size = DefaultInputSize
	}
	inputName := strings.TrimSpace(cfg.InputName)
	if inputName == "" {
		inputName = "input"
	}
	outputName := strings.TrimSpace(cfg.OutputName)
	if outputName == "" {
		outputName = "output"
	}

	if !ort.IsInitialized() {
		if lib := strings.TrimSpace(cfg.LibraryPath); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cat.Len())))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()

	device := "cpu"
	if cfg.wantsAccelerator() {
		if appendCUDA(options) {
			device = "cuda"
		}
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.Value{input}, []ort.Value{output}, options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}

	logrus.WithFields(logrus.Fields{
		"model":   cfg.ModelPath,
		"device":  device,
		"classes": cat.Len(),
		"size":    size,
	}).Info("supplement classifier loaded")

	return &ONNXClassifier{
		session: session,
		input:   input,
		output:  output,
		size:    size,
		cat:     cat,
		device:  device,
	}, nil
}

func appendCUDA(options *ort.SessionOptions) bool {
	cudaOptions, err := ort.NewCUDAProviderOptions()
	if err != nil {
		logrus.WithError(err).Warn("cuda provider unavailable, using cpu")
		return false
	}
	defer cudaOptions.Destroy()
	if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
		logrus.WithError(err).Warn("cuda provider unavailable, using cpu")
		return false
	}
	return true
}

// Name identifies the backend in logs and history records.
func (c *ONNXClassifier) Name() string {
	return "onnx-" + c.device
}

// Classify runs one forward pass and returns the arg-max label.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) (catalog.Label, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Label{}, err
	}
	pixels := Preprocess(img, c.size)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.input.GetData(), pixels)
	if err := c.session.Run(); err != nil {
		return catalog.Label{}, fmt.Errorf("run inference: %w", err)
	}
	scores := c.output.GetData()

	label, ok := c.cat.Label(Argmax(scores))
	if !ok {
		return catalog.Label{}, ErrNoMatch
	}
	return label, nil
}

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
		c.input = nil
	}
	if c.output != nil {
		errs = append(errs, c.output.Destroy())
		c.output = nil
	}
	return errors.Join(errs...)
}
