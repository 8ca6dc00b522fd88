package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Brownie44l1/signscope-api/pkg/metrics"
)

// Register attaches the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(h.Health, "health"))
	mux.HandleFunc("/predict", MetricsMiddleware(h.Predict, "predict"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// Routes returns the full middleware-wrapped handler for the server.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return h.RequestID(h.Recover(h.CORS(mux)))
}
