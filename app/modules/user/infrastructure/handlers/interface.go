package userhandlers

import (
	"context"
	"net/http"

	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
)

// Handlers serves the user HTTP API and consumes ranking events.
type Handlers interface {
	HandleEnsureUser(w http.ResponseWriter, r *http.Request)
	HandleGetUser(w http.ResponseWriter, r *http.Request)

	HandleRankingSubmitted(ctx context.Context, payload *events.RankingSubmittedPayloadV1) ([]handlerwrapper.Result, error)
}
