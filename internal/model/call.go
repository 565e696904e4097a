package model

import "time"

// CallStatus tracks the lifecycle of an outbound call record.
type CallStatus string

const (
	CallStatusInitiated CallStatus = "initiated"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
)

// AnalysisStatus returns the annotation status recorded when the platform's
// own analysis did not succeed (e.g. "analysis_failed", "analysis_no_transcript").
// These are terminal for the callback but do not represent pipeline processing.
func AnalysisStatus(platformStatus string) CallStatus {
	return CallStatus("analysis_" + platformStatus)
}

// Terminal reports whether the status is a pipeline-terminal state.
func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// CallRecord is the local representation of one call attempt.
//
// CallID is assigned by the calling platform when the call is created and is
// the primary key. TrackingID is the telephony-level identifier (callSid) the
// platform prefers in callbacks; it may be unknown at creation time and filled
// in later. Either identifier alone resolves the full record.
type CallRecord struct {
	OwnerID     string     `json:"owner_id"`
	CallID      string     `json:"call_id"`
	TrackingID  string     `json:"tracking_id,omitempty"`
	ContactID   string     `json:"contact_id,omitempty"`
	CampaignID  string     `json:"campaign_id,omitempty"`
	Status      CallStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
