// Package preprocess - Letterbox preprocessing for YOLO-style ONNX models.
package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-wildlife/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultInputSize is the square side expected by YOLOv8 exports.
const DefaultInputSize = 640

// DefaultLetterboxColor is the mid-gray used for letterbox padding.
var DefaultLetterboxColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// ColorMode defines the channel order written to the tensor.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
)

// Config defines preprocessing configuration for a model.
type Config struct {
	// InputSize is the side S of the square model input.
	InputSize int
	// LetterboxColor fills the padding around the resized image.
	LetterboxColor color.Color
	// ColorMode defines the channel order the model expects.
	ColorMode ColorMode
	// Interpolation is the resampling function used for the resize.
	Interpolation resize.InterpolationFunction
}

// DefaultConfig returns the YOLOv8 configuration: 640x640, gray 114
// padding, RGB, bilinear resampling.
func DefaultConfig() *Config {
	return &Config{
		InputSize:      DefaultInputSize,
		LetterboxColor: DefaultLetterboxColor,
		ColorMode:      ColorModeRGB,
		Interpolation:  resize.Bilinear,
	}
}

// Result contains the preprocessed tensor and the geometry needed to map
// detections back to the original image.
type Result struct {
	// Tensor is float32 [1, 3, S, S] with values in [0, 1].
	Tensor *tensor.Dense
	// Letterbox holds scale and padding.
	Letterbox images.Letterbox
	// OriginalWidth is the source width before preprocessing.
	OriginalWidth int
	// OriginalHeight is the source height before preprocessing.
	OriginalHeight int
}

// Preprocessor handles image preprocessing for ONNX models. It holds no
// mutable state and is safe for concurrent use.
type Preprocessor struct {
	config *Config
}

// NewPreprocessor creates a new preprocessor with the given configuration.
// A nil config means DefaultConfig; a zero InputSize or nil LetterboxColor
// take their defaults.
//
// @example
// preprocessor := NewPreprocessor(DefaultConfig())
func NewPreprocessor(config *Config) *Preprocessor {
	defaults := DefaultConfig()
	if config == nil {
		return &Preprocessor{config: defaults}
	}

	cfg := *config
	if cfg.InputSize <= 0 {
		cfg.InputSize = defaults.InputSize
	}
	if cfg.LetterboxColor == nil {
		cfg.LetterboxColor = defaults.LetterboxColor
	}
	return &Preprocessor{config: &cfg}
}

// InputSize returns the model input side S.
func (p *Preprocessor) InputSize() int {
	return p.config.InputSize
}

// PreprocessImage decodes the raw image and preprocesses it.
//
// Arguments:
//   - raw: The encoded input image.
//
// Returns:
//   - *Result: The tensor and letterbox geometry.
//   - error: An *images.ImageLoadError if the image cannot be decoded.
func (p *Preprocessor) PreprocessImage(raw *images.Image) (*Result, error) {
	img, err := images.Decode(raw)
	if err != nil {
		return nil, err
	}
	return p.Preprocess(img)
}

// Preprocess letterboxes img into the model input tensor.
//
// The image is resized by min(S/W, S/H), centered on an SxS canvas of the
// letterbox color, then written channel-first with a leading batch axis
// and values scaled to [0, 1].
//
// Arguments:
//   - img: The decoded input image.
//
// Returns:
//   - *Result: The tensor and letterbox geometry.
//   - error: An *images.ImageLoadError if the image has a zero dimension.
//
// @example
// result, err := preprocessor.Preprocess(img)
//
//	if err != nil {
//	    return err
//	}
//
// fmt.Println(result.Letterbox.Scale, result.Letterbox.PadX, result.Letterbox.PadY)
func (p *Preprocessor) Preprocess(img image.Image) (*Result, error) {
	if err := images.CheckDimensions(img); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	lb, err := images.NewLetterbox(bounds.Dx(), bounds.Dy(), p.config.InputSize)
	if err != nil {
		return nil, &images.ImageLoadError{Reason: "letterbox failed", Err: err}
	}

	canvas := p.letterbox(img, lb)
	data := p.imageToTensor(canvas)

	size := p.config.InputSize
	t := tensor.New(tensor.WithShape(1, 3, size, size), tensor.WithBacking(data))

	return &Result{
		Tensor:         t,
		Letterbox:      lb,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}, nil
}

// letterbox resizes img into the padded square canvas described by lb.
func (p *Preprocessor) letterbox(img image.Image, lb images.Letterbox) *image.NRGBA {
	resized := resize.Resize(uint(lb.NewWidth), uint(lb.NewHeight), img, p.config.Interpolation)

	canvas := imaging.New(lb.Size, lb.Size, p.config.LetterboxColor)
	return imaging.Paste(canvas, resized, image.Pt(lb.PadX, lb.PadY))
}

// imageToTensor converts the canvas to normalized CHW float32 data.
func (p *Preprocessor) imageToTensor(img *image.NRGBA) []float32 {
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	plane := width * height

	data := make([]float32, 3*plane)
	first, third := data[0:plane], data[2*plane:3*plane]
	if p.config.ColorMode == ColorModeBGR {
		first, third = third, first
	}
	second := data[plane : 2*plane]

	i := 0
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			first[i] = float32(px[0]) / 255.0
			second[i] = float32(px[1]) / 255.0
			third[i] = float32(px[2]) / 255.0
			i++
		}
	}
	return data
}

// Validate reports whether the config can be used.
func (c *Config) Validate() error {
	if c.InputSize <= 0 {
		return errors.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.ColorMode != ColorModeRGB && c.ColorMode != ColorModeBGR {
		return errors.Errorf("unsupported color mode: %d", c.ColorMode)
	}
	return nil
}
