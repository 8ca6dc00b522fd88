package model

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

// Signature describes the single input and output the server binds.
type Signature struct {
	InputName   string
	OutputName  string
	OutputShape ort.Shape
	NumClasses  int
}

var wantInput = [4]int64{preprocess.Batch, preprocess.Size, preprocess.Size, preprocess.Channels}

// CheckSignature verifies the model takes one float NHWC image of the
// preprocessing geometry and emits numClasses float scores per image.
// Dynamic dimensions (reported as -1) are accepted and pinned to the batch
// of one used at inference time.
func CheckSignature(inputs, outputs []ort.InputOutputInfo, numClasses int) (Signature, error) {
	if len(inputs) != 1 {
		return Signature{}, errors.Wrapf(ErrIncompatible, "want 1 input, model has %d", len(inputs))
	}
	if len(outputs) == 0 {
		return Signature{}, errors.Wrap(ErrIncompatible, "model has no outputs")
	}

	in := inputs[0]
	if err := checkFloatTensor(in); err != nil {
		return Signature{}, err
	}
	if len(in.Dimensions) != len(wantInput) {
		return Signature{}, errors.Wrapf(ErrIncompatible, "input %q has shape %v, want %v", in.Name, in.Dimensions, wantInput)
	}
	for i, d := range in.Dimensions {
		if d > 0 && d != wantInput[i] {
			return Signature{}, errors.Wrapf(ErrIncompatible, "input %q has shape %v, want %v", in.Name, in.Dimensions, wantInput)
		}
	}

	out := outputs[0]
	if err := checkFloatTensor(out); err != nil {
		return Signature{}, err
	}
	dims := out.Dimensions
	if len(dims) == 0 {
		return Signature{}, errors.Wrapf(ErrIncompatible, "output %q is a scalar", out.Name)
	}
	if last := dims[len(dims)-1]; last != int64(numClasses) {
		return Signature{}, errors.Wrapf(ErrIncompatible,
			"output %q has %d classes, label table has %d", out.Name, last, numClasses)
	}

	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
	}

	return Signature{
		InputName:   in.Name,
		OutputName:  out.Name,
		OutputShape: shape,
		NumClasses:  numClasses,
	}, nil
}

func checkFloatTensor(info ort.InputOutputInfo) error {
	if info.OrtValueType != ort.ONNXTypeTensor {
		return errors.Wrapf(ErrIncompatible, "%q is %v, want a tensor", info.Name, info.OrtValueType)
	}
	if info.DataType != ort.TensorElementDataTypeFloat {
		return errors.Wrapf(ErrIncompatible, "%q holds %v, want float32", info.Name, info.DataType)
	}
	return nil
}
