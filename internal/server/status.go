package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusHandler reports ledger and cache counts for the workspace.
type StatusHandler struct {
	workspace *cache.Workspace
	entities  []models.EntityType
}

// NewStatusHandler reports on entities, or on every fetchable entity when none are given.
func NewStatusHandler(ws *cache.Workspace, entities ...models.EntityType) *StatusHandler {
	if len(entities) == 0 {
		for _, e := range models.EntityTypes() {
			if e.Fetchable() {
				entities = append(entities, e)
			}
		}
	}
	return &StatusHandler{workspace: ws, entities: entities}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"GET /status", "GET /status/{entity}"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entities := h.entities
	if name := r.PathValue("entity"); name != "" {
		entity, err := models.ParseEntityType(name)
		if err != nil || !entity.Fetchable() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown entity " + name})
			return
		}
		entities = []models.EntityType{entity}
	}

	statuses := make([]cache.Status, 0, len(entities))
	for _, entity := range entities {
		st, err := h.workspace.Status(entity)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

// New builds the status router: /healthz, /status and /metrics.
func New(ws *cache.Workspace, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	r.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handler(NewStatusHandler(ws))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
