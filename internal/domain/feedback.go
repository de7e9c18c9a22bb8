package domain

import "time"

// Vote is a user's opinion on an EventReason (spec.md §3).
type Vote string

const (
	VoteHelpful    Vote = "helpful"
	VoteNotHelpful Vote = "not_helpful"
)

// Feedback is a (user, event, reason) unique, last-write-wins vote.
type Feedback struct {
	UserID       string
	EventID      string
	ReasonID     string
	Vote         Vote
	UpdatedAtUTC time.Time
}

// ReportType is the category of a user-filed ReasonReport (spec.md §3).
type ReportType string

const (
	ReportInaccurateReason  ReportType = "inaccurate_reason"
	ReportWrongSource       ReportType = "wrong_source"
	ReportOutdatedInfo      ReportType = "outdated_information"
	ReportOther             ReportType = "other"
)

// ReportState is a ReasonReport's position in the state machine (spec.md §4.4).
type ReportState string

const (
	ReportReceived ReportState = "received"
	ReportReviewed ReportState = "reviewed"
	ReportResolved ReportState = "resolved"
)

// ReasonReport is a user's claim that a reason is incorrect.
type ReasonReport struct {
	ID            string
	UserID        string
	EventID       string
	ReasonID      string
	ReportType    ReportType
	State         ReportState
	Note          string
	CreatedAtUTC  time.Time
	UpdatedAtUTC  time.Time
}

// IsOpen reports whether this report still occupies the "at most one
// non-resolved report per (user,event,reason)" slot (spec.md §4.4).
func (r ReasonReport) IsOpen() bool { return r.State != ReportResolved }

// ReasonStatusTransition is an append-only log row for a report's state
// change (spec.md §3).
type ReasonStatusTransition struct {
	ID           string
	ReportID     string
	FromStatus   ReportState
	ToStatus     ReportState
	ChangedAtUTC time.Time
	Note         string
}

// ReasonRevision records a confidence adjustment applied when a report
// resolves and the reviewer triggers a Reason Engine rerun (spec.md §3, §4.4).
type ReasonRevision struct {
	ID                string
	EventID           string
	ReasonID          string
	ReportID          string
	ConfidenceBefore  float64
	ConfidenceAfter   float64
	RevisionReason    string
	RevisedAtUTC      time.Time
}
