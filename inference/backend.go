// Package inference - Inference backends that turn a preprocessed tensor
// into the raw model output.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrBackendUnavailable reports that no real model can be loaded: the
// runtime library or the model file is missing. Callers resolve it once at
// construction, typically by switching to the mock path.
var ErrBackendUnavailable = errors.New("inference backend unavailable")

// Backend runs the model on a preprocessed [1, 3, S, S] tensor and returns
// the raw [1, 4+C, N] output. Implementations must be safe for concurrent use.
type Backend interface {
	Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	Close() error
}

// BackendFunc adapts a function to the Backend interface. Close is a no-op.
type BackendFunc func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)

// Infer calls f.
func (f BackendFunc) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	return f(ctx, input)
}

// Close does nothing.
func (f BackendFunc) Close() error { return nil }

// IsUnavailable reports whether err means the backend could not be opened.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
