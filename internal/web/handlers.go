package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/RangeViz/internal/logic/scene"
	"github.com/cjeanneret/RangeViz/internal/render"
)

// maxEventBytes bounds the body of a POST /param request.
const maxEventBytes = 4 << 10

// Engine is the render loop as seen by the handlers.
type Engine interface {
	Submit(ctx context.Context, ev scene.ParamChanged) (scene.Update, error)
	Controls(ctx context.Context) ([]scene.Control, error)
	Latest() render.Frame
	LatestPNG() ([]byte, uint64, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Engine      Engine
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If engine is nil, every scene route returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, engine Engine, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Engine:      engine,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleControls returns the slider definitions with their current values.
func (h *Handlers) HandleControls(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		http.Error(w, "render loop not configured", http.StatusServiceUnavailable)
		return
	}
	controls, err := h.Engine.Controls(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"controls": controls})
}

// HandleParam handles POST /param: one control moved.
func (h *Handlers) HandleParam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev scene.ParamChanged
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if err := ev.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.Engine == nil {
		http.Error(w, "render loop not configured", http.StatusServiceUnavailable)
		return
	}

	u, err := h.Engine.Submit(r.Context(), ev)
	switch {
	case errors.Is(err, render.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Broadcaster.BroadcastData(KindParam, u); err != nil {
		log.Printf("broadcast param update: %v", err)
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleFrame serves the latest rendered frame as PNG.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		http.Error(w, "render loop not configured", http.StatusServiceUnavailable)
		return
	}
	data, seq, err := h.Engine.LatestPNG()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	w.Write(data)
}

// HandleStats returns the derived quantities of the latest frame.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	f, ok := h.latestFrame(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seq":         f.Seq,
		"rendered_at": f.RenderedAt.Format(time.RFC3339Nano),
		"stats":       f.Stats,
	})
}

// HandleErrorChartPNG plots the error bound of the current camera.
func (h *Handlers) HandleErrorChartPNG(w http.ResponseWriter, r *http.Request) {
	f, ok := h.latestFrame(w)
	if !ok {
		return
	}
	o, err := chartOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ranges := make([]float64, len(f.Stats.ErrorTable))
	for i, b := range f.Stats.ErrorTable {
		ranges[i] = b.RangeM
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.WriteErrorChartPNG(w, f.Stats.Camera, ranges, o); err != nil {
		log.Printf("error chart: %v", err)
	}
}

// HandleErrorChartHTML serves the interactive version of the error chart.
func (h *Handlers) HandleErrorChartHTML(w http.ResponseWriter, r *http.Request) {
	f, ok := h.latestFrame(w)
	if !ok {
		return
	}
	o, err := chartOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteErrorChartHTML(w, f.Stats.Camera, o); err != nil {
		log.Printf("error chart: %v", err)
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handlers) latestFrame(w http.ResponseWriter) (render.Frame, bool) {
	if h.Engine == nil {
		http.Error(w, "render loop not configured", http.StatusServiceUnavailable)
		return render.Frame{}, false
	}
	f := h.Engine.Latest()
	if f.Seq == 0 {
		http.Error(w, render.ErrNoFrame.Error(), http.StatusServiceUnavailable)
		return render.Frame{}, false
	}
	return f, true
}

// chartOptions reads min, max and samples from the query string.
func chartOptions(r *http.Request) (render.ChartOptions, error) {
	o := render.DefaultChartOptions()
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst *float64
	}{{"min", &o.MinRangeM}, {"max", &o.MaxRangeM}} {
		if s := q.Get(p.key); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return o, fmt.Errorf("invalid %s: %q", p.key, s)
			}
			*p.dst = v
		}
	}
	if s := q.Get("samples"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 2 || n > 5000 {
			return o, fmt.Errorf("samples must be between 2 and 5000, got %q", s)
		}
		o.Samples = n
	}
	if !(o.MinRangeM > 0) || !(o.MaxRangeM > o.MinRangeM) || math.IsInf(o.MaxRangeM, 0) {
		return o, fmt.Errorf("chart range must satisfy 0 < min < max, got [%g, %g]", o.MinRangeM, o.MaxRangeM)
	}
	return o, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
