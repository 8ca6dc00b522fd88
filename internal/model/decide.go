package model

import (
	"context"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

// Argmax returns the index and value of the largest score. Ties resolve to
// the lowest index and NaN never wins.
func Argmax(scores []float32) (int, float32, error) {
	if len(scores) == 0 {
		return 0, 0, ErrEmptyOutput
	}
	best := -1
	var top float32
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			continue
		}
		if best < 0 || v > top {
			best, top = i, v
		}
	}
	if best < 0 {
		return 0, 0, errors.Wrap(ErrEmptyOutput, "all scores are NaN")
	}
	return best, top, nil
}

// Decide maps a score vector onto the label table. The confidence is the raw
// top score; no softmax is applied.
func Decide(scores []float32, table []string) (Prediction, error) {
	idx, top, err := Argmax(scores)
	if err != nil {
		return Prediction{}, err
	}
	if math.IsInf(float64(top), 0) {
		return Prediction{}, errors.Wrapf(ErrNonFinite, "score %v at index %d", top, idx)
	}
	if idx >= len(table) {
		return Prediction{}, errors.Wrapf(ErrLabelMismatch, "index %d, %d labels", idx, len(table))
	}
	return Prediction{
		SignName:   table[idx],
		Confidence: widen(top),
		Index:      idx,
	}, nil
}

// Classify runs c on input and decides against the built-in label table.
func Classify(ctx context.Context, c Classifier, input *preprocess.Tensor) (Prediction, error) {
	scores, err := c.Predict(ctx, input)
	if err != nil {
		return Prediction{}, err
	}
	return Decide(scores, labels[:])
}

// widen converts to float64 through the shortest decimal form of v so
// 0.97 is reported as 0.97 rather than 0.9700000286102295.
func widen(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
