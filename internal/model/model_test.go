package model

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

type fixedClassifier struct {
	scores []float32
	err    error
}

func (f fixedClassifier) Predict(context.Context, *preprocess.Tensor) ([]float32, error) {
	return f.scores, f.err
}

func scoresWith(idx int, v float32) []float32 {
	s := make([]float32, NumClasses)
	for i := range s {
		s[i] = 0.001
	}
	s[idx] = v
	return s
}

func TestLabelTable(t *testing.T) {
	all := Labels()
	require.Len(t, all, NumClasses)
	assert.Equal(t, "Speed limit (20km/h)", all[0])
	assert.Equal(t, "Stop", all[14])
	assert.Equal(t, "End of no passing by vehicles over 3.5 tons", all[42])

	all[14] = "changed"
	l, ok := Label(14)
	assert.True(t, ok)
	assert.Equal(t, "Stop", l)

	_, ok = Label(-1)
	assert.False(t, ok)
	_, ok = Label(NumClasses)
	assert.False(t, ok)
}

func TestArgmax(t *testing.T) {
	idx, v, err := Argmax([]float32{0.1, 0.7, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, float32(0.7), v)

	idx, _, err = Argmax([]float32{0.3, 0.5, 0.5, 0.1, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "ties resolve to the first occurrence")

	idx, v, err = Argmax([]float32{-3, -1, -2})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, float32(-1), v)

	nan := float32(math.NaN())
	idx, _, err = Argmax([]float32{nan, 0.2, nan, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, _, err = Argmax(nil)
	assert.True(t, errors.Is(err, ErrEmptyOutput))

	_, _, err = Argmax([]float32{nan, nan})
	assert.True(t, errors.Is(err, ErrEmptyOutput))
}

func TestDecide(t *testing.T) {
	p, err := Decide(scoresWith(14, 0.97), Labels())
	require.NoError(t, err)
	assert.Equal(t, "Stop", p.SignName)
	assert.Equal(t, 0.97, p.Confidence)
	assert.Equal(t, 14, p.Index)

	body, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"signName":"Stop","confidence":0.97}`, string(body))

	// Raw scores are reported as-is, even when not a probability.
	p, err = Decide(scoresWith(2, 7.5), Labels())
	require.NoError(t, err)
	assert.Equal(t, "Speed limit (50km/h)", p.SignName)
	assert.Equal(t, 7.5, p.Confidence)

	_, err = Decide([]float32{0.1, 0.9}, []string{"only one"})
	assert.True(t, errors.Is(err, ErrLabelMismatch))

	_, err = Decide(scoresWith(3, float32(math.Inf(1))), Labels())
	assert.True(t, errors.Is(err, ErrNonFinite))
}

func TestDecideIsDeterministic(t *testing.T) {
	scores := scoresWith(33, 0.51)
	first, err := Decide(scores, Labels())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Decide(scores, Labels())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	p, err := Classify(ctx, fixedClassifier{scores: scoresWith(14, 0.97)}, &preprocess.Tensor{})
	require.NoError(t, err)
	assert.Equal(t, Prediction{SignName: "Stop", Confidence: 0.97, Index: 14}, p)

	_, err = Classify(ctx, fixedClassifier{err: errors.Wrap(ErrInference, "boom")}, &preprocess.Tensor{})
	assert.True(t, errors.Is(err, ErrInference))
}

func tensorInfo(name string, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:         name,
		OrtValueType: ort.ONNXTypeTensor,
		Dimensions:   ort.NewShape(dims...),
		DataType:     ort.TensorElementDataTypeFloat,
	}
}

func TestCheckSignature(t *testing.T) {
	t.Run("dynamic batch", func(t *testing.T) {
		sig, err := CheckSignature(
			[]ort.InputOutputInfo{tensorInfo("input_1", -1, 32, 32, 3)},
			[]ort.InputOutputInfo{tensorInfo("dense_1", -1, 43)},
			NumClasses,
		)
		require.NoError(t, err)
		assert.Equal(t, "input_1", sig.InputName)
		assert.Equal(t, "dense_1", sig.OutputName)
		assert.Equal(t, ort.NewShape(1, 43), sig.OutputShape)
		assert.Equal(t, NumClasses, sig.NumClasses)
	})

	t.Run("fixed batch", func(t *testing.T) {
		_, err := CheckSignature(
			[]ort.InputOutputInfo{tensorInfo("x", 1, 32, 32, 3)},
			[]ort.InputOutputInfo{tensorInfo("y", 1, 43)},
			NumClasses,
		)
		require.NoError(t, err)
	})

	rejects := map[string]struct {
		inputs  []ort.InputOutputInfo
		outputs []ort.InputOutputInfo
	}{
		"wrong class count": {
			[]ort.InputOutputInfo{tensorInfo("x", -1, 32, 32, 3)},
			[]ort.InputOutputInfo{tensorInfo("y", -1, 10)},
		},
		"channels first": {
			[]ort.InputOutputInfo{tensorInfo("x", -1, 3, 32, 32)},
			[]ort.InputOutputInfo{tensorInfo("y", -1, 43)},
		},
		"wrong resolution": {
			[]ort.InputOutputInfo{tensorInfo("x", -1, 224, 224, 3)},
			[]ort.InputOutputInfo{tensorInfo("y", -1, 43)},
		},
		"two inputs": {
			[]ort.InputOutputInfo{tensorInfo("a", -1, 32, 32, 3), tensorInfo("b", -1, 32, 32, 3)},
			[]ort.InputOutputInfo{tensorInfo("y", -1, 43)},
		},
		"no outputs": {
			[]ort.InputOutputInfo{tensorInfo("x", -1, 32, 32, 3)},
			nil,
		},
		"double input": {
			[]ort.InputOutputInfo{{
				Name:         "x",
				OrtValueType: ort.ONNXTypeTensor,
				Dimensions:   ort.NewShape(-1, 32, 32, 3),
				DataType:     ort.TensorElementDataTypeDouble,
			}},
			[]ort.InputOutputInfo{tensorInfo("y", -1, 43)},
		},
		"sequence output": {
			[]ort.InputOutputInfo{tensorInfo("x", -1, 32, 32, 3)},
			[]ort.InputOutputInfo{{
				Name:         "y",
				OrtValueType: ort.ONNXTypeSequence,
				Dimensions:   ort.NewShape(-1, 43),
				DataType:     ort.TensorElementDataTypeFloat,
			}},
		},
	}
	for name, tc := range rejects {
		t.Run(name, func(t *testing.T) {
			_, err := CheckSignature(tc.inputs, tc.outputs, NumClasses)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompatible))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir()+"/missing.onnx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
}
