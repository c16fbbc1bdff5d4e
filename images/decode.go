package images

import (
	"bytes"
	"fmt"
	"image"

	// Register the decoders imaging.Decode relies on beyond the stdlib set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// ImageLoadError is returned when an input image is unreadable, corrupt or
// has a zero dimension. It is never retried.
type ImageLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ImageLoadError) Error() string {
	msg := "could not load image"
	if e.Path != "" {
		msg += " from " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// Decode turns the encoded image into an image.Image, honouring EXIF orientation.
//
// Arguments:
//   - img: The encoded image.
//
// Returns:
//   - image.Image: The decoded image with non-zero width and height.
//   - error: An *ImageLoadError when the data is empty, corrupt or zero-sized.
func Decode(img *Image) (image.Image, error) {
	if img == nil {
		return nil, &ImageLoadError{Reason: "image is nil"}
	}
	if len(img.Data) == 0 {
		return nil, &ImageLoadError{Path: img.Path, Reason: "image data is empty"}
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Path: img.Path, Reason: "decode failed", Err: err}
	}

	if err := CheckDimensions(decoded); err != nil {
		err.Path = img.Path
		return nil, err
	}
	return decoded, nil
}

// CheckDimensions rejects images with a zero width or height.
func CheckDimensions(img image.Image) *ImageLoadError {
	if img == nil {
		return &ImageLoadError{Reason: "image is nil"}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &ImageLoadError{Reason: fmt.Sprintf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())}
	}
	return nil
}
