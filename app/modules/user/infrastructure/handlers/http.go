package userhandlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/go-chi/chi/v5"
)

const maxJSONBody = 1 << 16

// Routes mounts the user API on r.
func Routes(r chi.Router, h Handlers) {
	r.Post("/", h.HandleEnsureUser)
	r.Get("/", h.HandleGetUser)
}

type ensureUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type userResponse struct {
	User              *sharedtypes.User `json:"user"`
	HasSubmittedToday *bool             `json:"has_submitted_today,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *UserHandlers) HandleEnsureUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ensureUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	id, err := h.service.EnsureUser(ctx, req.Email, req.Name, clientIP(r))
	switch {
	case errors.Is(err, sharedtypes.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	case errors.Is(err, sharedtypes.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid name")
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "Failed to ensure user", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save user")
		return
	}

	user, err := h.service.GetUserByEmail(ctx, req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load ensured user", attr.String("user_id", id.String()), attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleGetUser looks a user up by email. An optional type reports whether
// the user already submitted that ranking type today.
func (h *UserHandlers) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, err := h.service.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, sharedtypes.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	case errors.Is(err, sharedtypes.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "Failed to load user", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	resp := userResponse{User: user}
	if raw := r.URL.Query().Get("type"); raw != "" {
		rankingType, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ranking type")
			return
		}
		submitted, err := h.service.HasSubmittedToday(ctx, email, rankingType)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to check today's submission", attr.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}
		resp.HasSubmittedToday = &submitted
	}
	writeJSON(w, http.StatusOK, resp)
}
