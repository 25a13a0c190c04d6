package model

import "time"

// RunStatus is the audit status reported for a finished scrape run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// OutcomeKind discriminates RunOutcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeFailure OutcomeKind = "failure"
)

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	ErrMissingCredential ErrorKind = "missing_credential"
	ErrRemote            ErrorKind = "remote_error"
	ErrInternal          ErrorKind = "internal_error"
)

// RunOutcome is the terminal result of one scrape run. Exactly one of the
// variant groups is meaningful, selected by Kind:
//
//	OutcomeSuccess: RowCount, Rows, CSV
//	OutcomeEmpty:   Reason
//	OutcomeFailure: ErrorKind, Message
type RunOutcome struct {
	Kind OutcomeKind `json:"kind"`

	RowCount int         `json:"row_count"`
	Rows     []OutputRow `json:"-"`
	CSV      string      `json:"-"`

	Reason string `json:"reason,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`

	// PagesFetched counts fetch round-trips, including the one that failed or
	// came back empty.
	PagesFetched int `json:"pages_fetched"`
}

// Success builds a successful outcome.
func Success(rows []OutputRow, csv string) RunOutcome {
	return RunOutcome{Kind: OutcomeSuccess, RowCount: len(rows), Rows: rows, CSV: csv}
}

// Empty builds an empty-result outcome.
func Empty(reason string) RunOutcome {
	return RunOutcome{Kind: OutcomeEmpty, Reason: reason}
}

// Failure builds a failed outcome. Any partially collected rows are dropped.
func Failure(kind ErrorKind, message string) RunOutcome {
	return RunOutcome{Kind: OutcomeFailure, ErrorKind: kind, Message: message}
}

// Failed reports whether the outcome is a failure.
func (o RunOutcome) Failed() bool {
	return o.Kind == OutcomeFailure
}

// RunSummary is the minimal audit payload for a finished run.
type RunSummary struct {
	DataCount int       `json:"dataCount"`
	Status    RunStatus `json:"status"`
}

// ScrapeLog is a persisted audit entry.
type ScrapeLog struct {
	ID        string    `json:"id"`
	DataCount int       `json:"dataCount"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// InvocationResult is returned to whoever invoked a run.
type InvocationResult struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Error   string     `json:"error,omitempty"`
	Logging RunSummary `json:"logging"`
}
