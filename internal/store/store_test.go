package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financebot/financebot/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetCall", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.SaveCall(ctx, SaveCallParams{
			OwnerID:    "+911234567890",
			CallID:     "call-abc",
			ContactID:  "contact-1",
			TrackingID: "sid-xyz",
			CampaignID: "camp-1",
		})
		require.NoError(t, err)

		got, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "+911234567890", got.OwnerID)
		assert.Equal(t, "sid-xyz", got.TrackingID)
		assert.Equal(t, model.CallStatusInitiated, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("SaveCallTwiceOverwritesAuxFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))

		first, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		require.NotNil(t, first)

		// Re-announce with newly discovered identifiers.
		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID:    "+911234567890",
			CallID:     "call-abc",
			ContactID:  "contact-2",
			TrackingID: "sid-late",
			CampaignID: "camp-2",
		}))

		got, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "contact-2", got.ContactID)
		assert.Equal(t, "sid-late", got.TrackingID)
		assert.Equal(t, "camp-2", got.CampaignID)
		assert.Equal(t, model.CallStatusInitiated, got.Status)
		assert.Equal(t, first.CreatedAt, got.CreatedAt)
	})

	t.Run("DualKeyLookupSameOwner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID:    "+911234567890",
			CallID:     "call-abc",
			TrackingID: "sid-xyz",
		}))

		byID, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		require.NotNil(t, byID)

		bySid, err := s.GetCallByTrackingID(ctx, "sid-xyz")
		require.NoError(t, err)
		require.NotNil(t, bySid)

		assert.Equal(t, byID.OwnerID, bySid.OwnerID)
		assert.Equal(t, byID.CallID, bySid.CallID)
	})

	t.Run("LookupMissReturnsNil", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.GetCallByID(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.GetCallByTrackingID(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.GetCallByTrackingID(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("UpdateCallStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))

		require.NoError(t, s.UpdateCallStatus(ctx, "call-abc", model.CallStatusCompleted, "contact-9"))

		got, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.CallStatusCompleted, got.Status)
		assert.Equal(t, "contact-9", got.ContactID)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("UpdateCallStatusMissingIsNoop", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// Already-lost state is not an error at status-update time.
		err := s.UpdateCallStatus(ctx, "never-seen", model.CallStatusFailed, "")
		require.NoError(t, err)
	})

	t.Run("UpdateCallStatusOverwritesTerminal", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))
		require.NoError(t, s.UpdateCallStatus(ctx, "call-abc", model.CallStatusCompleted, ""))
		// Last writer wins on redelivery.
		require.NoError(t, s.UpdateCallStatus(ctx, "call-abc", model.CallStatusCompleted, ""))

		got, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		assert.Equal(t, model.CallStatusCompleted, got.Status)
	})

	t.Run("AnalysisAnnotationStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))
		require.NoError(t, s.UpdateCallStatus(ctx, "call-abc", model.AnalysisStatus("no_transcript"), ""))

		got, err := s.GetCallByID(ctx, "call-abc")
		require.NoError(t, err)
		assert.Equal(t, model.CallStatus("analysis_no_transcript"), got.Status)
		assert.False(t, got.Status.Terminal())
	})

	t.Run("OwnerOf", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))

		owner, err := s.OwnerOf(ctx, "call-abc")
		require.NoError(t, err)
		assert.Equal(t, "+911234567890", owner)

		owner, err = s.OwnerOf(ctx, "ghost")
		require.NoError(t, err)
		assert.Empty(t, owner)
	})

	t.Run("SaveReportIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCall(ctx, SaveCallParams{
			OwnerID: "+911234567890",
			CallID:  "call-abc",
		}))

		r := model.ReportRecord{
			ReportID:    "rep-1",
			OwnerID:     "+911234567890",
			CallID:      "call-abc",
			Type:        model.ReportTypeComprehensivePlanning,
			Filename:    "report.pdf",
			StoragePath: "/reports/rep-1/report.pdf",
		}
		require.NoError(t, s.SaveReport(ctx, r))

		// Duplicate insert is a no-op, not an error.
		dup := r
		dup.Filename = "other.pdf"
		require.NoError(t, s.SaveReport(ctx, dup))

		reports, err := s.ListReports(ctx, "+911234567890")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "report.pdf", reports[0].Filename)
	})

	t.Run("SaveReportWithoutCall", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// A report can exist before (or without) a persisted call row; the
		// empty call_id must not collide with the calls reference.
		require.NoError(t, s.SaveReport(ctx, model.ReportRecord{
			ReportID:    "rep-orphan",
			OwnerID:     "+911234567890",
			Type:        model.ReportTypeComprehensivePlanning,
			Filename:    "report.pdf",
			StoragePath: "/reports/rep-orphan/report.pdf",
		}))

		got, err := s.GetReport(ctx, "+911234567890", "rep-orphan")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.CallID)
	})

	t.Run("SaveReportDanglingCallRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.SaveReport(ctx, model.ReportRecord{
			ReportID:    "rep-dangling",
			OwnerID:     "+911234567890",
			CallID:      "never-saved",
			Type:        model.ReportTypeComprehensivePlanning,
			Filename:    "report.pdf",
			StoragePath: "/reports/rep-dangling/report.pdf",
		})
		require.Error(t, err, "a non-empty call_id must reference a persisted call")
	})

	t.Run("ListReportsEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		reports, err := s.ListReports(ctx, "+910000000000")
		require.NoError(t, err)
		assert.Empty(t, reports)
	})

	t.Run("GetReport", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveReport(ctx, model.ReportRecord{
			ReportID:    "rep-1",
			OwnerID:     "+911234567890",
			Type:        model.ReportTypeFinancialPlanning,
			Filename:    "report.pdf",
			StoragePath: "/reports/rep-1/report.pdf",
		}))

		got, err := s.GetReport(ctx, "+911234567890", "rep-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.ReportTypeFinancialPlanning, got.Type)

		// Reports are owner-scoped.
		other, err := s.GetReport(ctx, "+919999999999", "rep-1")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("EnsureUserIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.EnsureUser(ctx, "+911234567890", "Asha"))
		require.NoError(t, s.EnsureUser(ctx, "+911234567890", "Renamed"))
		require.NoError(t, s.TouchLastLogin(ctx, "+911234567890"))
	})

	t.Run("FinancialSnapshotOverwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.UpsertFinancialSnapshot(ctx, &model.FinancialSnapshot{
			OwnerID:  "+911234567890",
			Income:   90000,
			Savings:  10000,
			Expenses: 40000,
			Extra:    map[string]any{"risk_profile": "Moderate"},
		}))

		require.NoError(t, s.UpsertFinancialSnapshot(ctx, &model.FinancialSnapshot{
			OwnerID:  "+911234567890",
			Income:   120000,
			Savings:  30000,
			Expenses: 50000,
			Extra:    map[string]any{"risk_profile": "Aggressive"},
		}))

		got, err := s.GetFinancialSnapshot(ctx, "+911234567890")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, 120000, got.Income, 0.001)
		assert.Equal(t, "Aggressive", got.Extra["risk_profile"])
	})

	t.Run("FinancialSnapshotMiss", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.GetFinancialSnapshot(ctx, "+910000000000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
