// Package detector - Wildlife detection pipeline: preprocess, infer,
// decode, suppress and optionally annotate.
package detector

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nvr-ai/go-wildlife/config"
	"github.com/nvr-ai/go-wildlife/images"
	"github.com/nvr-ai/go-wildlife/inference"
	"github.com/nvr-ai/go-wildlife/logging"
	"github.com/nvr-ai/go-wildlife/models/postprocess"
	"github.com/nvr-ai/go-wildlife/models/preprocess"
	"github.com/nvr-ai/go-wildlife/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode is the inference path chosen once at construction.
type Mode int

const (
	// ModeReal runs the model.
	ModeReal Mode = iota
	// ModeMock returns synthetic detections.
	ModeMock
)

func (m Mode) String() string {
	switch m {
	case ModeReal:
		return "real"
	case ModeMock:
		return "mock"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode name in JSON output.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Result is the outcome of one detection call.
type Result struct {
	// Detections is confidence-descending and free of redundant boxes.
	Detections postprocess.DetectionSet `json:"detections"`
	// AnnotatedPath is where the annotated copy was written, or "".
	AnnotatedPath string `json:"annotated_path,omitempty"`
}

// Stats counts processed images.
type Stats struct {
	Images     int64         `json:"images"`
	Detections int64         `json:"detections"`
	Animals    int64         `json:"animals"`
	Annotated  int64         `json:"annotated"`
	TotalTime  time.Duration `json:"total_time"`
}

// Detector runs the detection pipeline. It is safe for concurrent use.
type Detector struct {
	cfg    config.Config
	mode   Mode
	logger *zap.SugaredLogger

	backend      inference.Backend
	mock         *MockBackend
	preprocessor *preprocess.Preprocessor
	decoder      *postprocess.Decoder
	nms          *postprocess.NMSConfig
	profiler     *profiler.Profiler

	mu    sync.Mutex
	stats Stats
}

// New creates a detector from the configuration.
//
// The mode is decided here and never changes. When cfg.ForceMock is set,
// or the ONNX backend reports inference.ErrBackendUnavailable, the detector
// runs in ModeMock and a single warning is logged.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - logger: The logger. Nil disables logging.
//
// Returns:
//   - *Detector: The detector. The caller must Close it.
//   - error: An error if cfg is invalid or the model exists but cannot be loaded.
func New(cfg config.Config, logger *zap.SugaredLogger) (*Detector, error) {
	logger = logging.OrNop(logger)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if cfg.ForceMock {
		logger.Warnw("mock mode forced by configuration, detections are synthetic")
		return NewMock(cfg, nil, logger)
	}

	onnxCfg, err := cfg.ONNX()
	if err != nil {
		return nil, err
	}

	backend, err := inference.NewONNXBackend(onnxCfg)
	if inference.IsUnavailable(err) {
		logger.Warnw("inference backend unavailable, falling back to mock mode", "error", err)
		return NewMock(cfg, nil, logger)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error loading model")
	}

	logger.Infow("model loaded", "model", onnxCfg.ModelPath, "provider", onnxCfg.Provider.Backend,
		"pool_size", onnxCfg.PoolSize)
	return NewWithBackend(cfg, backend, logger)
}

// NewWithBackend creates a ModeReal detector around a caller-supplied
// backend. The detector takes ownership and closes it on Close.
func NewWithBackend(cfg config.Config, backend inference.Backend, logger *zap.SugaredLogger) (*Detector, error) {
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Detector{
		cfg:          cfg,
		mode:         ModeReal,
		logger:       logging.OrNop(logger),
		backend:      backend,
		preprocessor: preprocess.NewPreprocessor(cfg.Preprocess()),
		decoder:      postprocess.NewDecoder(cfg.ConfThreshold),
		nms:          cfg.NMS(),
		profiler:     profiler.New(0),
	}, nil
}

// NewMock creates a ModeMock detector. A nil rng is seeded randomly.
func NewMock(cfg config.Config, rng *rand.Rand, logger *zap.SugaredLogger) (*Detector, error) {
	return &Detector{
		cfg:      cfg,
		mode:     ModeMock,
		logger:   logging.OrNop(logger),
		mock:     NewMockBackend(rng),
		profiler: profiler.New(0),
	}, nil
}

// Mode reports the inference path.
func (d *Detector) Mode() Mode {
	return d.mode
}

// Detect runs the pipeline on one image.
//
// In ModeReal the image is decoded, letterboxed, passed through the
// backend, decoded and suppressed. When drawBoxes is set and anything was
// found, an annotated copy is written (see images.AnnotatedPath). In
// ModeMock the image content is ignored and no copy is written.
//
// Arguments:
//   - ctx: Bounds the backend call.
//   - raw: The encoded input image.
//   - drawBoxes: Whether to write an annotated copy.
//
// Returns:
//   - *Result: The detections and the annotated path, if any.
//   - error: *images.ImageLoadError, *postprocess.ShapeError, a backend
//     error or an annotation write error. No partial result is returned.
func (d *Detector) Detect(ctx context.Context, raw *images.Image, drawBoxes bool) (*Result, error) {
	start := time.Now()

	var (
		result *Result
		err    error
	)
	if d.mode == ModeMock {
		done := d.profiler.StartOperation(profiler.StageInfer)
		result = &Result{Detections: d.mock.Detect()}
		done()
	} else {
		result, err = d.detect(ctx, raw, drawBoxes)
	}
	if err != nil {
		return nil, err
	}

	d.record(result, time.Since(start))
	d.logger.Debugw("detection complete", "mode", d.mode, "path", pathOf(raw),
		"detections", len(result.Detections), "elapsed", time.Since(start))
	return result, nil
}

func (d *Detector) detect(ctx context.Context, raw *images.Image, drawBoxes bool) (*Result, error) {
	done := d.profiler.StartOperation(profiler.StageDecode)
	img, err := images.Decode(raw)
	done()
	if err != nil {
		return nil, err
	}

	done = d.profiler.StartOperation(profiler.StagePreprocess)
	pre, err := d.preprocessor.Preprocess(img)
	done()
	if err != nil {
		if le, ok := err.(*images.ImageLoadError); ok && le.Path == "" {
			le.Path = pathOf(raw)
		}
		return nil, err
	}

	done = d.profiler.StartOperation(profiler.StageInfer)
	out, err := d.backend.Infer(ctx, pre.Tensor)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	done = d.profiler.StartOperation(profiler.StagePostprocess)
	candidates, err := d.decoder.Decode(out, pre.Letterbox, pre.OriginalWidth, pre.OriginalHeight)
	if err != nil {
		done()
		return nil, err
	}
	result := &Result{Detections: postprocess.ApplyNMS(candidates, d.nms)}
	done()

	if drawBoxes && len(result.Detections) > 0 {
		defer d.profiler.StartOperation(profiler.StageAnnotate)()
		annotated, err := images.Annotate(img, result.Detections.Annotations())
		if err != nil {
			return nil, errors.Wrap(err, "error drawing detections")
		}
		path := images.AnnotatedPath(pathOf(raw), d.cfg.OutputDir)
		if err := images.SaveAnnotated(path, annotated); err != nil {
			return nil, errors.Wrapf(err, "error saving annotated image to %s", path)
		}
		result.AnnotatedPath = path
	}

	return result, nil
}

// DetectAll runs Detect over raws with at most concurrency calls in flight.
// Results are index-aligned with raws. The first error cancels the
// remaining work and is returned alone.
func (d *Detector) DetectAll(ctx context.Context, raws []*images.Image, drawBoxes bool, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*Result, len(raws))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := d.Detect(ctx, raw, drawBoxes)
			if err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SelectPrimary picks the detection that drives alerting.
func SelectPrimary(set postprocess.DetectionSet) postprocess.Primary {
	return postprocess.SelectPrimary(set)
}

// Stats returns the processing counters.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Detector) record(r *Result, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Images++
	d.stats.Detections += int64(len(r.Detections))
	for _, det := range r.Detections {
		if det.IsAnimal {
			d.stats.Animals++
		}
	}
	if r.AnnotatedPath != "" {
		d.stats.Annotated++
	}
	d.stats.TotalTime += elapsed
}

// Profiler returns the per-stage timings.
func (d *Detector) Profiler() *profiler.Profiler {
	return d.profiler
}

// Close releases the backend.
func (d *Detector) Close() error {
	if d.backend == nil {
		return nil
	}
	return d.backend.Close()
}

func pathOf(raw *images.Image) string {
	if raw == nil {
		return ""
	}
	return raw.Path
}
