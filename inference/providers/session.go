// Package providers - Inference sessions.
package providers

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitializeEnvironment loads the ONNX Runtime shared library once per
// process. Later calls are no-ops.
func InitializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// Session represents a model session from the onnxruntime with its bound
// input and output tensors. A Session is not safe for concurrent use.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	var err error
	if s.Session != nil {
		if derr := s.Session.Destroy(); derr != nil {
			err = errors.Wrap(derr, "error destroying ORT session")
		}
		s.Session = nil
	}
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	return err
}

// NewSessionArgs represents the arguments for creating a new ONNX session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// Input and output node names.
	InputName  string
	OutputName string
	// Fixed tensor shapes, e.g. [1, 3, 640, 640] and [1, 84, 8400].
	InputShape  ort.Shape
	OutputShape ort.Shape
}

// NewSession creates a new ONNX session.
//
// Order of operations:
//  1. Tensor allocation: Prepares fixed-shape buffers for input/output data.
//  2. Session options: Threading, graph optimization and execution provider.
//  3. Session creation: Loads the model and binds the tensors.
//
// The environment must already be initialized with InitializeEnvironment.
//
// Arguments:
//   - config: The provider configuration.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session and its bound tensors. The caller must Close it.
//   - error: An error if the session creation fails.
func NewSession(config Config, args NewSessionArgs) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](args.InputShape)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](args.OutputShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := config.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{Session: session, Input: input, Output: output}, nil
}
