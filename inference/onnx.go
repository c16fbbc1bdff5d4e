// Package inference - ONNX Runtime backend.
package inference

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvr-ai/go-wildlife/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Default node names and output geometry of a YOLOv8 detection export.
const (
	DefaultInputName  = "images"
	DefaultOutputName = "output0"
	DefaultChannels   = 84
	DefaultAnchors    = 8400
)

// ONNXConfig configures the ONNX Runtime backend.
type ONNXConfig struct {
	// ModelPath is the .onnx file. Relative paths are also tried next to
	// the executable.
	ModelPath string `json:"model_path"      yaml:"model_path"`
	// SharedLibPath overrides the ONNX Runtime shared library location.
	SharedLibPath string `json:"shared_lib_path" yaml:"shared_lib_path"`
	// InputSize is the side S of the square model input.
	InputSize int `json:"input_size"      yaml:"input_size"`
	// PoolSize is the number of sessions. One session serializes calls.
	PoolSize int `json:"pool_size"       yaml:"pool_size"`
	// AcquireTimeout bounds the wait for a free session. Zero waits for the context.
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
	// Provider selects the execution provider and session tuning.
	Provider providers.Config `json:"provider"        yaml:"provider"`
}

// Stats reports backend usage, in the style of a profiled session.
type Stats struct {
	InferenceCount int64         `json:"inference_count"`
	TotalTime      time.Duration `json:"total_time"`
	Pool           PoolMetrics   `json:"pool"`
}

// AverageTime is the mean duration of a model run.
func (s Stats) AverageTime() time.Duration {
	if s.InferenceCount == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.InferenceCount)
}

// ONNXBackend runs a YOLO-style ONNX model through a pool of ONNX Runtime
// sessions.
type ONNXBackend struct {
	pool        *Pool[*providers.Session]
	inputShape  ort.Shape
	outputShape ort.Shape

	mu             sync.Mutex
	inferenceCount int64
	totalTime      time.Duration
}

// NewONNXBackend loads the model into cfg.PoolSize sessions.
//
// Order of operations:
//  1. Model and shared library lookup. A missing file is ErrBackendUnavailable.
//  2. Environment setup, once per process.
//  3. Model introspection for node names and the output shape.
//  4. Session pool creation.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - *ONNXBackend: The backend. The caller must Close it.
//   - error: ErrBackendUnavailable (wrapped) when the runtime or model is
//     missing, any other error when they exist but cannot be loaded.
func NewONNXBackend(cfg ONNXConfig) (*ONNXBackend, error) {
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("input size must be positive, got %d", cfg.InputSize)
	}

	modelPath, err := ResolveModelPath(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}

	libPath, err := providers.ResolveSharedLibPath(cfg.SharedLibPath)
	if err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}

	if err := providers.InitializeEnvironment(libPath); err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}

	args, err := sessionArgs(modelPath, cfg.InputSize)
	if err != nil {
		return nil, err
	}

	pool, err := NewPool(cfg.PoolSize, cfg.AcquireTimeout, func(int) (*providers.Session, error) {
		return providers.NewSession(cfg.Provider, args)
	})
	if err != nil {
		return nil, err
	}

	return &ONNXBackend{
		pool:        pool,
		inputShape:  args.InputShape,
		outputShape: args.OutputShape,
	}, nil
}

// sessionArgs reads node names and the output shape from the model,
// falling back to the YOLOv8 defaults for dynamic dimensions.
func sessionArgs(modelPath string, size int) (providers.NewSessionArgs, error) {
	args := providers.NewSessionArgs{
		ModelPath:   modelPath,
		InputName:   DefaultInputName,
		OutputName:  DefaultOutputName,
		InputShape:  ort.NewShape(1, 3, int64(size), int64(size)),
		OutputShape: ort.NewShape(1, DefaultChannels, DefaultAnchors),
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return args, errors.Wrapf(err, "error reading model io info from %s", modelPath)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return args, errors.Errorf("unexpected model io (in:%d out:%d)", len(inputs), len(outputs))
	}

	args.InputName = inputs[0].Name
	args.OutputName = outputs[0].Name
	args.OutputShape = OutputShape(outputs[0].Dimensions)
	return args, nil
}

// OutputShape resolves the model's declared output dimensions, replacing
// dynamic (non-positive) entries with the YOLOv8 defaults.
func OutputShape(dims ort.Shape) ort.Shape {
	defaults := ort.NewShape(1, DefaultChannels, DefaultAnchors)
	if len(dims) != len(defaults) {
		return defaults
	}
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d > 0 {
			out[i] = d
		} else {
			out[i] = defaults[i]
		}
	}
	return out
}

// ResolveModelPath returns path if it exists, otherwise the same relative
// path next to the running executable.
func ResolveModelPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("no model path configured")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		if exe, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(exe), path)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", errors.Errorf("model file not found: %s", path)
}

// Infer runs the model on input.
//
// Arguments:
//   - ctx: Bounds the wait for a free session. The model run itself is not
//     interruptible.
//   - input: float32 tensor matching the model input shape.
//
// Returns:
//   - *tensor.Dense: A copy of the raw output, shape [1, 4+C, N].
//   - error: An error if the input does not match or the run fails.
func (b *ONNXBackend) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	data, err := b.inputData(input)
	if err != nil {
		return nil, err
	}

	session, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error acquiring session")
	}
	defer b.pool.Release(session)

	copy(session.Input.GetData(), data)

	start := time.Now()
	if err := session.Session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}
	b.record(time.Since(start))

	raw := session.Output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)

	return tensor.New(tensor.WithShape(shapeInts(b.outputShape)...), tensor.WithBacking(out)), nil
}

func (b *ONNXBackend) inputData(input *tensor.Dense) ([]float32, error) {
	if input == nil || input.Dtype() != tensor.Float32 {
		return nil, errors.New("input must be a float32 tensor")
	}
	want := shapeInts(b.inputShape)
	if !input.Shape().Eq(tensor.Shape(want)) {
		return nil, errors.Errorf("input shape %v does not match model input %v", input.Shape(), want)
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.New("input tensor has no float32 backing")
	}
	return data, nil
}

func (b *ONNXBackend) record(d time.Duration) {
	b.mu.Lock()
	b.inferenceCount++
	b.totalTime += d
	b.mu.Unlock()
}

// Stats returns run counters and pool metrics.
func (b *ONNXBackend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		InferenceCount: b.inferenceCount,
		TotalTime:      b.totalTime,
		Pool:           b.pool.Metrics(),
	}
}

// Close destroys every session. The ONNX Runtime environment stays loaded
// for the rest of the process.
func (b *ONNXBackend) Close() error {
	return b.pool.Close()
}

func shapeInts(s ort.Shape) []int {
	out := make([]int, len(s))
	for i, d := range s {
		out[i] = int(d)
	}
	return out
}
