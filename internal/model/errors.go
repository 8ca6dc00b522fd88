package model

import "github.com/pkg/errors"

// Sentinel kinds for model errors.
var (
	ErrLoad          = errors.New("load model failed")
	ErrIncompatible  = errors.New("model signature incompatible")
	ErrInference     = errors.New("inference failed")
	ErrEmptyOutput   = errors.New("empty model output")
	ErrLabelMismatch = errors.New("output index has no label")
	ErrNonFinite     = errors.New("non-finite score")
)
