package store

import (
	"context"

	"github.com/financebot/financebot/internal/model"
)

// SaveCallParams carries the fields known when a call is announced. Optional
// identifiers may be empty and can be supplied later by re-announcing the
// same call_id.
type SaveCallParams struct {
	OwnerID    string `json:"owner_id"`
	CallID     string `json:"call_id"`
	ContactID  string `json:"contact_id,omitempty"`
	TrackingID string `json:"tracking_id,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// Store defines the persistence interface for calls, reports, users, and
// financial snapshots.
//
// Semantics the webhook pipeline depends on:
//   - SaveCall is an upsert keyed by call_id: a repeat announce overwrites
//     the auxiliary identifiers but preserves status and created_at.
//   - UpdateCallStatus is a no-op (not an error) when the call_id is unknown.
//   - SaveReport is a no-op on a duplicate report_id.
//   - GetCallByTrackingID / GetCallByID return (nil, nil) on a miss.
type Store interface {
	// Users
	EnsureUser(ctx context.Context, phoneNumber, name string) error
	TouchLastLogin(ctx context.Context, phoneNumber string) error

	// Calls
	SaveCall(ctx context.Context, p SaveCallParams) error
	UpdateCallStatus(ctx context.Context, callID string, status model.CallStatus, contactID string) error
	GetCallByID(ctx context.Context, callID string) (*model.CallRecord, error)
	GetCallByTrackingID(ctx context.Context, trackingID string) (*model.CallRecord, error)
	OwnerOf(ctx context.Context, callID string) (string, error)

	// Reports
	SaveReport(ctx context.Context, r model.ReportRecord) error
	ListReports(ctx context.Context, ownerID string) ([]model.ReportRecord, error)
	GetReport(ctx context.Context, ownerID, reportID string) (*model.ReportRecord, error)

	// Financial snapshots
	UpsertFinancialSnapshot(ctx context.Context, s *model.FinancialSnapshot) error
	GetFinancialSnapshot(ctx context.Context, ownerID string) (*model.FinancialSnapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
