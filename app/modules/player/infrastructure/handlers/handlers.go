package playerhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	playerservice "github.com/Black-And-White-Club/consensus-rank/app/modules/player/application"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/go-chi/chi/v5"
)

// PlayerHandlers serves the catalog over HTTP.
type PlayerHandlers struct {
	service playerservice.Service
	logger  *slog.Logger
}

func NewPlayerHandlers(service playerservice.Service, logger *slog.Logger) *PlayerHandlers {
	return &PlayerHandlers{service: service, logger: logger}
}

// Routes mounts the catalog API on r.
func (h *PlayerHandlers) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleList returns the players array directly.
func (h *PlayerHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := playerservice.ListQuery{
		Query:    q.Get("query"),
		Position: q.Get("position"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
			return
		}
		query.Limit = n
	}

	players, err := h.service.ListPlayers(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch players", attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch players"})
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *PlayerHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	player, err := h.service.GetPlayer(ctx, id)
	if errors.Is(err, playerservice.ErrPlayerNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Player not found"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch player details", attr.String("player_id", id), attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch player details"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": player})
}
