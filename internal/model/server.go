package model

import (
	"context"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

// Server runs the ONNX sign classifier. The session is created once and only
// read afterwards; tensors are allocated per call so Predict is safe to use
// from concurrent requests.
type Server struct {
	session     *ort.DynamicAdvancedSession
	signature   Signature
	ownsRuntime bool
}

type loadOptions struct {
	libraryPath string
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithSharedLibraryPath points onnxruntime at a specific shared library.
func WithSharedLibraryPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.libraryPath = path
	}
}

// Load deserializes the model at modelPath and checks that its signature
// matches the preprocessing geometry and the label table.
func Load(ctx context.Context, modelPath string, opts ...LoadOption) (*Server, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrapf(ErrLoad, "%v", err)
	}

	owns := false
	if !ort.IsInitialized() {
		if o.libraryPath != "" {
			ort.SetSharedLibraryPath(o.libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrapf(ErrLoad, "initialize onnxruntime: %v", err)
		}
		owns = true
	}

	s, err := open(modelPath, NumClasses)
	if err != nil {
		if owns {
			_ = ort.DestroyEnvironment()
		}
		return nil, err
	}
	s.ownsRuntime = owns
	return s, nil
}

func open(modelPath string, numClasses int) (*Server, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(ErrLoad, "read %s: %v", modelPath, err)
	}

	sig, err := CheckSignature(inputs, outputs, numClasses)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{sig.InputName}, []string{sig.OutputName}, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrLoad, "create session: %v", err)
	}

	return &Server{session: session, signature: sig}, nil
}

// Signature reports the checked model I/O.
func (s *Server) Signature() Signature {
	return s.signature
}

// Predict runs one inference and returns the scores for batch index 0.
func (s *Server) Predict(ctx context.Context, in *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.Wrap(ErrInference, "nil input")
	}

	input, err := ort.NewTensor(ort.NewShape(in.Shape[:]...), in.Data)
	if err != nil {
		return nil, errors.Wrapf(ErrInference, "input tensor: %v", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](s.signature.OutputShape)
	if err != nil {
		return nil, errors.Wrapf(ErrInference, "output tensor: %v", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, errors.Wrapf(ErrInference, "%v", err)
	}

	scores := make([]float32, s.signature.NumClasses)
	copy(scores, output.GetData())
	return scores, nil
}

// Close releases the session and, if Load created it, the runtime.
func (s *Server) Close() {
	if s.session != nil {
		_ = s.session.Destroy()
		s.session = nil
	}
	if s.ownsRuntime {
		_ = ort.DestroyEnvironment()
		s.ownsRuntime = false
	}
}
