package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/Brownie44l1/signscope-api/internal/model"
	"github.com/Brownie44l1/signscope-api/internal/preprocess"
	"github.com/Brownie44l1/signscope-api/pkg/logger"
	"github.com/Brownie44l1/signscope-api/pkg/metrics"
)

const (
	// FileField is the multipart field carrying the image.
	FileField = "file"

	defaultMaxUploadBytes = 10 << 20
)

// Handler serves the prediction API. A nil classifier means the model failed
// to load; every prediction then answers 500 until the process restarts.
type Handler struct {
	classifier     model.Classifier
	maxUploadBytes int64
	interp         resize.InterpolationFunction
	corsOrigin     string
	log            logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes caps the request body of POST /predict.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithInterpolation selects the resize filter used during preprocessing.
func WithInterpolation(f resize.InterpolationFunction) Option {
	return func(h *Handler) {
		h.interp = f
	}
}

// WithCORSOrigin sets Access-Control-Allow-Origin. Defaults to "*".
func WithCORSOrigin(origin string) Option {
	return func(h *Handler) {
		if origin != "" {
			h.corsOrigin = origin
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler builds a Handler around classifier, which may be nil.
func NewHandler(classifier model.Classifier, opts ...Option) *Handler {
	h := &Handler{
		classifier:     classifier,
		maxUploadBytes: defaultMaxUploadBytes,
		interp:         resize.Bicubic,
		corsOrigin:     "*",
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	metrics.SetModelLoaded(classifier != nil)
	return h
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", ModelLoaded: h.classifier != nil})
}

type upload struct {
	filename string
	data     []byte
}

// Predict handles POST /predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		h.fail(ctx, w, newError(KindMethodNotAllowed, errors.Errorf("method %s", r.Method)))
		return
	}

	if h.classifier == nil {
		h.fail(ctx, w, newError(KindModelUnavailable, nil))
		return
	}

	up, err := h.readUpload(w, r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	h.log.Debug(ctx, "received file",
		logger.String("filename", up.filename),
		logger.Int("size", len(up.data)))
	metrics.RecordUploadSize(int64(len(up.data)))

	pred, perr := h.process(ctx, up)
	if perr != nil {
		h.fail(ctx, w, perr,
			logger.String("filename", up.filename),
			logger.String("mime", mimetype.Detect(up.data).String()))
		return
	}

	metrics.RecordPrediction(pred.SignName, pred.Confidence)
	h.log.Info(ctx, "prediction",
		logger.String("filename", up.filename),
		logger.String("sign", pred.SignName),
		logger.Float64("confidence", pred.Confidence))

	writeJSON(w, http.StatusOK, pred)
}

// readUpload pulls the first "file" part carrying a filename out of a
// multipart body. Parts without a filename parameter are plain form values
// and do not count as a file part.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (upload, *Error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		return upload{}, newError(KindNoFilePart, err)
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return upload{}, newError(KindNoFilePart, nil)
		}
		if err != nil {
			return upload{}, bodyError(err, KindNoFilePart)
		}
		if p.FormName() != FileField {
			continue
		}

		filename, ok := partFilename(p.Header.Get("Content-Disposition"))
		if !ok {
			continue
		}
		if filename == "" {
			return upload{}, newError(KindNoFileSelected, nil)
		}

		data, err := io.ReadAll(p)
		if err != nil {
			return upload{}, bodyError(errors.Wrap(err, "read upload"), KindUnknown)
		}
		return upload{filename: filename, data: data}, nil
	}
}

// partFilename reports the raw filename parameter of a Content-Disposition
// header and whether the parameter is present at all.
func partFilename(disposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

func bodyError(err error, fallback Kind) *Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newError(KindTooLarge, err)
	}
	return newError(fallback, err)
}

// process runs preprocessing and inference. Every failure, panics included,
// comes back as KindProcessing.
func (h *Handler) process(ctx context.Context, up upload) (pred model.Prediction, perr *Error) {
	defer func() {
		if rec := recover(); rec != nil {
			perr = newError(KindProcessing, errors.Errorf("panic: %v", rec))
		}
	}()

	start := time.Now()
	tensor, err := preprocess.FromBytes(up.data, preprocess.WithInterpolation(h.interp))
	metrics.RecordPreprocessLatency(sinceMs(start))
	if err != nil {
		return model.Prediction{}, newError(KindProcessing, err)
	}

	start = time.Now()
	pred, err = model.Classify(ctx, h.classifier, tensor)
	metrics.RecordInferenceLatency(sinceMs(start))
	if err != nil {
		return model.Prediction{}, newError(KindProcessing, err)
	}
	return pred, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, e *Error, extra ...logger.Field) {
	fields := []logger.Field{logger.String("kind", e.Kind.String()), logger.Int("status", e.Kind.Status())}
	fields = append(fields, extra...)
	if e.Err != nil {
		fields = append(fields, logger.Error(e.Err))
	}
	if e.Kind.Status() >= http.StatusInternalServerError {
		h.log.Error(ctx, "prediction failed", fields...)
	} else {
		h.log.Warn(ctx, "prediction rejected", fields...)
	}
	metrics.RecordPredictionError(e.Kind.String())
	writeError(w, e.Kind)
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
