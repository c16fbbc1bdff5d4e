// Package images - Image definition for processing utilities.
package images

// Image represents an encoded input image as handed to the detection pipeline.
type Image struct {
	// Path is where the image was read from. Optional; when set, annotated
	// copies are written beside it.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// The format of the image. Empty means auto-detect.
	Format ImageFormat `json:"format" yaml:"format"`
	// The encoded bytes of the image.
	Data []byte `json:"data" yaml:"data"`
}

// NewImage wraps encoded bytes, inferring the format from the path extension.
func NewImage(path string, data []byte) *Image {
	return &Image{
		Path:   path,
		Format: FormatFromPath(path),
		Data:   data,
	}
}
