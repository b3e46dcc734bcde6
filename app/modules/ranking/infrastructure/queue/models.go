package rankingqueue

// DailyAggregationJob rebuilds every ranking type for a day. An empty Date
// means the run finalizes yesterday and refreshes today.
type DailyAggregationJob struct {
	Date string `json:"date,omitempty"`
}

// Kind returns the job type identifier for River
func (DailyAggregationJob) Kind() string { return "ranking_daily_aggregation" }

// RecomputeJob rebuilds one ranking type for one day.
type RecomputeJob struct {
	RankingType int    `json:"ranking_type"`
	Date        string `json:"date"`
}

// Kind returns the job type identifier for River
func (RecomputeJob) Kind() string { return "ranking_recompute" }

// PurgeJob deletes submissions past the retention window.
type PurgeJob struct{}

// Kind returns the job type identifier for River
func (PurgeJob) Kind() string { return "ranking_purge" }

// JobInfo represents information about a queued job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
