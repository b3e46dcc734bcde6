// Package events defines the topics and payloads exchanged between modules.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	// RankingSubmittedV1 is published after a submission and its aggregate
	// update commit.
	RankingSubmittedV1 = "ranking.submitted.v1"

	// AggregationRequestedV1 asks the ranking module to rebuild aggregates.
	AggregationRequestedV1 = "ranking.aggregation.requested.v1"

	// AggregatesRecalculatedV1 is published after a batch rebuild commits.
	AggregatesRecalculatedV1 = "ranking.aggregates.recalculated.v1"
)

// RankingSubmittedPayloadV1 describes an accepted submission.
type RankingSubmittedPayloadV1 struct {
	SubmissionID   uuid.UUID `json:"submission_id"`
	UserID         uuid.UUID `json:"user_id"`
	RankingType    int       `json:"ranking_type"`
	SubmissionDate string    `json:"submission_date"`
	Replaced       bool      `json:"replaced"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// AggregationRequestedPayloadV1 requests a rebuild. A zero RankingType means
// every type; an empty Date means today.
type AggregationRequestedPayloadV1 struct {
	RankingType int    `json:"ranking_type,omitempty"`
	Date        string `json:"date,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// AggregatesRecalculatedPayloadV1 reports a committed rebuild.
type AggregatesRecalculatedPayloadV1 struct {
	RankingType     int    `json:"ranking_type"`
	CalculationDate string `json:"calculation_date"`
	Players         int    `json:"players"`
	Submissions     int    `json:"submissions"`
}
