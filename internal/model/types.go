package model

import (
	"context"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

// Classifier runs one forward pass and returns the score vector for batch 0.
type Classifier interface {
	Predict(ctx context.Context, input *preprocess.Tensor) ([]float32, error)
}

// Prediction is the success body of POST /predict.
type Prediction struct {
	SignName   string  `json:"signName"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"-"`
}
