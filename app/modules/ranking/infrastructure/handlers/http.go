package rankinghandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	rankingservice "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/application"
	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingsheets "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/sheets"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/consensus-rank/app/shared/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20

	topCacheControl = "public, s-maxage=86400, stale-while-revalidate=172800"

	invalidTypeMessage = "Invalid ranking type. Must be 10, 25, 50, or 100"
)

// Routes mounts the ranking API on r.
func Routes(r chi.Router, h Handlers) {
	r.Post("/", h.HandleSubmit)
	r.Get("/", h.HandleList)
	r.Post("/import", h.HandleImport)
	r.Get("/aggregated/{type}", h.HandleAggregated)
	r.Get("/top", h.HandleTop)
	r.Get("/user", h.HandleUserSubmission)
	r.Post("/aggregate", h.HandleTriggerAggregation)
	r.Get("/export/{type}", h.HandleExport)
	r.Get("/jobs", h.HandleListJobs)
}

type submitRequest struct {
	Email       string                       `json:"email"`
	Name        string                       `json:"name"`
	RankingType int                          `json:"ranking_type"`
	Rankings    []rankingdomain.RankedPlayer `json:"rankings"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// clientIP prefers the first X-Forwarded-For hop.
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

// submitterReasons checks the identity fields of a submission.
func submitterReasons(email, name string) []string {
	var reasons []string
	if !sharedtypes.ValidEmail(strings.TrimSpace(email)) {
		reasons = append(reasons, "Invalid email address")
	}
	if !sharedtypes.ValidName(name) {
		reasons = append(reasons, fmt.Sprintf("Name must be between %d and %d characters", sharedtypes.MinNameLength, sharedtypes.MaxNameLength))
	}
	return reasons
}

func (h *RankingHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission", "Request body must be a JSON object")
		return
	}
	h.submit(w, r, req)
}

// HandleImport accepts a multipart form with email, name, ranking_type and an
// XLSX file holding the ranked players.
func (h *RankingHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission", "Request must be a multipart form")
		return
	}

	rankingType, err := strconv.Atoi(r.FormValue("ranking_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission", invalidTypeMessage)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission", "A ranking sheet file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to read uploaded ranking sheet", attr.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid submission", "Could not read the uploaded file")
		return
	}
	entries, err := rankingsheets.ParseRanking(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission", err.Error())
		return
	}

	h.submit(w, r, submitRequest{
		Email:       r.FormValue("email"),
		Name:        r.FormValue("name"),
		RankingType: rankingType,
		Rankings:    entries,
	})
}

func (h *RankingHandlers) submit(w http.ResponseWriter, r *http.Request, req submitRequest) {
	ctx := r.Context()
	rankingType := rankingdomain.RankingType(req.RankingType)

	reasons := submitterReasons(req.Email, req.Name)
	vr := rankingdomain.ValidateSubmission(rankingType, rankingdomain.NormalizeEntries(req.Rankings))
	if reasons = append(reasons, vr.Reasons...); len(reasons) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid submission", reasons...)
		return
	}

	userID, err := h.users.EnsureUser(ctx, req.Email, req.Name, clientIP(r))
	if err != nil {
		if errors.Is(err, sharedtypes.ErrInvalidEmail) || errors.Is(err, sharedtypes.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "Invalid submission", err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Failed to resolve submitter", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to submit rankings")
		return
	}

	res, err := h.service.SubmitRanking(ctx, rankingservice.SubmitRequest{
		UserID:      userID,
		RankingType: rankingType,
		Entries:     req.Rankings,
	})
	if err != nil {
		var ve *rankingservice.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "Invalid submission", ve.Reasons...)
			return
		}
		h.logger.ErrorContext(ctx, "Failed to submit rankings",
			attr.String("user_id", userID.String()),
			attr.Int("ranking_type", req.RankingType),
			attr.Error(err),
		)
		writeError(w, storageStatus(err), "Failed to submit rankings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"submission_id":  res.SubmissionID,
		"replaced":       res.Replaced,
		"points_awarded": res.PointsAwarded,
	})
}

// storageStatus maps a failed storage call to 503 when the deadline expired.
func storageStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *RankingHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		raw = h.defaultType.String()
	}
	h.consensus(w, r, raw, 0)
}

func (h *RankingHandlers) HandleAggregated(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	h.consensus(w, r, chi.URLParam(r, "type"), limit)
}

func (h *RankingHandlers) consensus(w http.ResponseWriter, r *http.Request, rawType string, limit int) {
	ctx := r.Context()
	rankingType, err := rankingdomain.ParseRankingType(rawType)
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidTypeMessage)
		return
	}
	date, err := rankingdomain.ParseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	entries, err := h.service.GetTopRankings(ctx, rankingType, date, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch aggregated rankings", attr.Error(err))
		writeError(w, storageStatus(err), "Failed to fetch aggregated rankings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": entries})
}

func (h *RankingHandlers) HandleTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.GetTopRankings(ctx, rankingdomain.RankingTop10, time.Time{}, 10)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch top players", attr.Error(err))
		writeError(w, storageStatus(err), "Failed to fetch top players")
		return
	}
	w.Header().Set("Cache-Control", topCacheControl)
	writeJSON(w, http.StatusOK, map[string]any{"rankings": entries})
}

func (h *RankingHandlers) HandleUserSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	email := strings.TrimSpace(q.Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if !sharedtypes.ValidEmail(email) {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	raw := q.Get("type")
	if raw == "" {
		raw = h.defaultType.String()
	}
	rankingType, err := rankingdomain.ParseRankingType(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidTypeMessage)
		return
	}

	userID, err := h.users.FindUserID(ctx, email)
	if errors.Is(err, sharedtypes.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "No submission found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to look up user", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch user rankings")
		return
	}

	sub, err := h.service.GetUserSubmission(ctx, userID, rankingType)
	if errors.Is(err, rankingservice.ErrSubmissionNotFound) {
		writeError(w, http.StatusNotFound, "No submission found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch user submission", attr.Error(err))
		writeError(w, storageStatus(err), "Failed to fetch user rankings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submission": sub})
}

type triggerRequest struct {
	RankingType int `json:"ranking_type"`
}

func (h *RankingHandlers) HandleTriggerAggregation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req triggerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
			return
		}
	}

	rankingType := rankingdomain.RankingType(req.RankingType)
	if rankingType != 0 && !rankingType.Valid() {
		writeError(w, http.StatusBadRequest, invalidTypeMessage)
		return
	}

	res, err := h.service.TriggerAggregation(ctx, rankingType)
	if err != nil {
		h.logger.ErrorContext(ctx, "Aggregation failed", attr.Int("ranking_type", req.RankingType), attr.Error(err))
		var details []string
		if res != nil {
			for _, o := range res.Outcomes {
				if o.Err != nil {
					details = append(details, fmt.Sprintf("type %d: %v", o.RankingType, o.Err))
				}
			}
		}
		writeError(w, http.StatusInternalServerError, "Failed to calculate aggregated rankings", details...)
		return
	}

	if rankingType != 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ranking_type": req.RankingType})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Daily aggregation completed successfully"})
}

func (h *RankingHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rankingType, err := rankingdomain.ParseRankingType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidTypeMessage)
		return
	}
	date, err := rankingdomain.ParseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	entries, err := h.service.GetTopRankings(ctx, rankingType, date, 0)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch rankings for export", attr.Error(err))
		writeError(w, storageStatus(err), "Failed to export rankings")
		return
	}
	data, err := rankingsheets.WriteConsensus(rankingType, entries)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to build export workbook", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export rankings")
		return
	}

	w.Header().Set("Content-Type", rankingsheets.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rankingsheets.FileName(rankingType, date)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *RankingHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue is not enabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	jobs, err := h.scheduler.ListJobs(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list ranking jobs", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
