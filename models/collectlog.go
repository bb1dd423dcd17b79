package models

import "time"

type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Named batch jobs, in rough dependency order.
const (
	JobCatalogCollect  = "catalog_collect"
	JobSalesCollect    = "danawa_sales"
	JobNaverInterest   = "naver_interest"
	JobGoogleTrend     = "google_trend"
	JobRegistryCollect = "market_stats"
	JobMetricAggregate = "metric_aggregate"
	JobBlogCollect     = "blog_collect"
	JobBlogAnalysis    = "blog_analysis"
)

// CollectLog is one attempt of a named job for a batch date. The history is
// append-only: a retry creates a new row, FAILED rows are never mutated back.
type CollectLog struct {
	ID         int64      `json:"id" db:"id"`
	JobName    string     `json:"job_name" db:"job_name"`
	BatchDate  string     `json:"batch_date" db:"batch_date"`
	Status     JobStatus  `json:"status" db:"status"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Message    string     `json:"message" db:"message"`
}
