package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financebot/financebot/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCallByID_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT call_id, owner_id, tracking_id, contact_id, campaign_id, status, created_at, completed_at FROM calls WHERE call_id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetCallByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCall_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("+911234567890", "+911234567890").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO calls .* ON CONFLICT \(call_id\) DO UPDATE`).
		WithArgs("call-abc", "+911234567890", "sid-xyz", "contact-1", "camp-1", "initiated").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveCall(context.Background(), SaveCallParams{
		OwnerID:    "+911234567890",
		CallID:     "call-abc",
		ContactID:  "contact-1",
		TrackingID: "sid-xyz",
		CampaignID: "camp-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCallStatus_MissingIsNoop(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE calls SET status = \$1, completed_at = now\(\) WHERE call_id = \$2`).
		WithArgs("failed", "never-seen").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCallStatus(context.Background(), "never-seen", model.CallStatusFailed, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport_DuplicateIsNoop(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("+911234567890", "+911234567890").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`INSERT INTO reports .* ON CONFLICT \(report_id\) DO NOTHING`).
		WithArgs("rep-1", "+911234567890", "call-abc", "comprehensive_planning", "report.pdf", "/reports/rep-1/report.pdf").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.SaveReport(context.Background(), model.ReportRecord{
		ReportID:    "rep-1",
		OwnerID:     "+911234567890",
		CallID:      "call-abc",
		Type:        model.ReportTypeComprehensivePlanning,
		Filename:    "report.pdf",
		StoragePath: "/reports/rep-1/report.pdf",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport_EmptyCallIDBecomesNull(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("+911234567890", "+911234567890").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`INSERT INTO reports .* VALUES \(\$1, \$2, NULLIF\(\$3, ''\)`).
		WithArgs("rep-2", "+911234567890", "", "financial_planning", "report.pdf", "/reports/rep-2/report.pdf").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveReport(context.Background(), model.ReportRecord{
		ReportID:    "rep-2",
		OwnerID:     "+911234567890",
		Type:        model.ReportTypeFinancialPlanning,
		Filename:    "report.pdf",
		StoragePath: "/reports/rep-2/report.pdf",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_OwnerOf_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT owner_id FROM calls WHERE call_id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	owner, err := s.OwnerOf(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCallByTrackingID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"call_id", "owner_id", "tracking_id", "contact_id", "campaign_id", "status", "created_at", "completed_at",
	}).AddRow("call-abc", "+911234567890", strPtr("sid-xyz"), strPtr("contact-1"), (*string)(nil), "initiated", time.Now().UTC(), (*time.Time)(nil))

	mock.ExpectQuery(`SELECT .* FROM calls WHERE tracking_id = \$1`).
		WithArgs("sid-xyz").
		WillReturnRows(rows)

	got, err := s.GetCallByTrackingID(context.Background(), "sid-xyz")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "call-abc", got.CallID)
	assert.Equal(t, "sid-xyz", got.TrackingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
