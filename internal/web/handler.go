package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/wardlem/findmy-tracker/internal/devices"
	"github.com/wardlem/findmy-tracker/internal/history"
)

//go:embed static/index.html
var staticFS embed.FS

// Handler serves the read API and the live map page. It holds no state of
// its own beyond the started-at instant; everything it returns comes from
// the history store and the device registry.
type Handler struct {
	deviceName string
	interval   time.Duration
	store      *history.Store
	registry   *devices.Registry
	startedAt  time.Time
	page       *template.Template
	logger     zerolog.Logger
}

// NewHandler creates a Handler for the given tracked device.
func NewHandler(deviceName string, interval time.Duration, store *history.Store,
	registry *devices.Registry, logger zerolog.Logger) (*Handler, error) {
	page, err := template.ParseFS(staticFS, "static/index.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		deviceName: deviceName,
		interval:   interval,
		store:      store,
		registry:   registry,
		startedAt:  time.Now(),
		page:       page,
		logger:     logger,
	}, nil
}

// Router builds the chi router with all routes and middleware attached.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/", h.handleIndex)
	r.Get("/api/data", h.handleData)
	r.Get("/api/devices", h.handleDevices)
	r.Get("/api/status", h.handleStatus)
	return r
}

// logRequests emits one access log line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

// handleIndex renders the live map page.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, map[string]string{"DeviceName": h.deviceName}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render map page")
	}
}

// handleData returns the full recorded history as a JSON array. An empty
// history yields an empty array with status 200, never an error.
func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	// Copy under the store lock, serialize outside it.
	records := h.store.Snapshot()

	writeJSON(w, records, h.logger)
}

// handleDevices lists every device seen in the most recent snapshots.
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.registry.List(), h.logger)
}

func writeJSON(w http.ResponseWriter, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to write JSON response")
	}
}
