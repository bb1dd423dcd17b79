package models

import "fmt"

// ValidationError marks a raw record with a malformed identity. The record is
// skipped and logged; it never aborts the batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// SourceUnavailableError marks a whole upstream source as failed for the run.
// The owning job is marked FAILED, other jobs proceed.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// AnalysisError marks a single article whose text pipeline failed. The
// article is skipped, no partial analysis is persisted.
type AnalysisError struct {
	ArticleID int64
	Reason    string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis: article %d: %s", e.ArticleID, e.Reason)
}

// ConsistencyError is fatal for one month's recomputation: the cohort read
// was not internally consistent, so prior derived values are left intact.
type ConsistencyError struct {
	YearMonth string
	Reason    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s: %s", e.YearMonth, e.Reason)
}
