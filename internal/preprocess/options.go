package preprocess

import (
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

var interpolations = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// ParseInterpolation maps a filter name to the resize function.
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	f, ok := interpolations[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Errorf("unknown interpolation %q", name)
	}
	return f, nil
}

type options struct {
	interp resize.InterpolationFunction
}

// Option customizes ToTensor.
type Option func(*options)

// WithInterpolation selects the resampling filter. Bicubic by default.
func WithInterpolation(f resize.InterpolationFunction) Option {
	return func(o *options) {
		o.interp = f
	}
}

func newOptions(opts ...Option) options {
	o := options{interp: resize.Bicubic}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
