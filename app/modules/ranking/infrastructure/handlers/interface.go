package rankinghandlers

import (
	"context"
	"net/http"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingqueue "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/queue"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/google/uuid"
)

// Handlers serves the ranking HTTP API and ranking events.
type Handlers interface {
	HandleSubmit(w http.ResponseWriter, r *http.Request)
	HandleImport(w http.ResponseWriter, r *http.Request)
	HandleList(w http.ResponseWriter, r *http.Request)
	HandleAggregated(w http.ResponseWriter, r *http.Request)
	HandleTop(w http.ResponseWriter, r *http.Request)
	HandleUserSubmission(w http.ResponseWriter, r *http.Request)
	HandleTriggerAggregation(w http.ResponseWriter, r *http.Request)
	HandleExport(w http.ResponseWriter, r *http.Request)
	HandleListJobs(w http.ResponseWriter, r *http.Request)

	HandleAggregationRequested(ctx context.Context, payload *events.AggregationRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// UserDirectory resolves submitters by email.
type UserDirectory interface {
	// EnsureUser creates the user or refreshes name and ip, returning its id.
	EnsureUser(ctx context.Context, email, name, ipAddress string) (uuid.UUID, error)
	// FindUserID returns sharedtypes.ErrUserNotFound for an unknown email.
	FindUserID(ctx context.Context, email string) (uuid.UUID, error)
}

// Scheduler defers rebuilds to the job queue.
type Scheduler interface {
	EnqueueRecompute(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) error
	EnqueueDailyAggregation(ctx context.Context, date time.Time) error
	ListJobs(ctx context.Context, limit int) ([]rankingqueue.JobInfo, error)
}
