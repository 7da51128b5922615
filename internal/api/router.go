package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/uhubctl-mqtt/internal/bridges/usbhub"
	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/hubs", func(r chi.Router) {
			r.Get("/", s.handleListHubs)
			r.Get("/{location}", s.handleGetHub)
		})
	})

	return r
}

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status        string `json:"status"`
	MQTTConnected bool   `json:"mqtt_connected"`
	Hubs          int    `json:"hubs"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth returns the bridge health. Without a broker session the
// bridge cannot receive commands, so it reports 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		MQTTConnected: s.bridge.Connected(),
		Hubs:          len(s.bridge.Hubs()),
		Version:       s.version,
		UptimeSeconds: int64(s.now().Sub(s.startTime).Seconds()),
	}

	status := http.StatusOK
	if !resp.MQTTConnected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleListHubs returns every hub as its MQTT state document.
func (s *Server) handleListHubs(w http.ResponseWriter, _ *http.Request) {
	hubs := s.bridge.Hubs()
	now := s.now()

	docs := make([]json.RawMessage, 0, len(hubs))
	for _, hub := range hubs {
		doc, err := s.encodeHub(hub, now)
		if err != nil {
			writeInternalError(w, "failed to encode hub state")
			return
		}
		docs = append(docs, doc)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hubs":  docs,
		"count": len(docs),
	})
}

// handleGetHub returns one hub's state document.
func (s *Server) handleGetHub(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")

	hub := s.bridge.Hub(location)
	if hub == nil {
		writeNotFound(w, "hub not found: "+location)
		return
	}

	doc, err := s.encodeHub(hub, s.now())
	if err != nil {
		writeInternalError(w, "failed to encode hub state")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) encodeHub(hub *uhubctl.Hub, now time.Time) (json.RawMessage, error) {
	doc, err := usbhub.StatePayload(hub, now)
	if err != nil {
		s.logger.Error("failed to encode hub state", "hub", hub.Location, "error", err)
		return nil, err
	}
	return doc, nil
}
