package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/financebot/financebot/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Pragmas ride on the DSN so every pooled connection gets them, not just the
// one an Exec happens to land on.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	phone_number TEXT PRIMARY KEY,
	name         TEXT,
	email        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	last_login   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS calls (
	call_id      TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(phone_number),
	tracking_id  TEXT UNIQUE,
	contact_id   TEXT,
	campaign_id  TEXT,
	status       TEXT NOT NULL DEFAULT 'initiated',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS reports (
	report_id    TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(phone_number),
	call_id      TEXT REFERENCES calls(call_id),
	type         TEXT NOT NULL,
	filename     TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS financial_snapshots (
	owner_id   TEXT PRIMARY KEY REFERENCES users(phone_number),
	income     REAL NOT NULL DEFAULT 0,
	savings    REAL NOT NULL DEFAULT 0,
	expenses   REAL NOT NULL DEFAULT 0,
	extra      TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_calls_owner_id ON calls(owner_id);
CREATE INDEX IF NOT EXISTS idx_calls_tracking_id ON calls(tracking_id);
CREATE INDEX IF NOT EXISTS idx_reports_owner_id ON reports(owner_id);
CREATE INDEX IF NOT EXISTS idx_reports_call_id ON reports(call_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, phoneNumber, name string) error {
	if name == "" {
		name = phoneNumber
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (phone_number, name, created_at, last_login) VALUES (?, ?, ?, ?)
		 ON CONFLICT(phone_number) DO NOTHING`,
		phoneNumber, name, now, now,
	)
	return eris.Wrapf(err, "sqlite: ensure user %s", phoneNumber)
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, phoneNumber string) error {
	if err := s.EnsureUser(ctx, phoneNumber, ""); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE phone_number = ?`,
		time.Now().UTC(), phoneNumber,
	)
	return eris.Wrapf(err, "sqlite: touch last login %s", phoneNumber)
}

func (s *SQLiteStore) SaveCall(ctx context.Context, p SaveCallParams) error {
	if err := s.EnsureUser(ctx, p.OwnerID, ""); err != nil {
		return err
	}

	// Re-announcing a known call_id overwrites the auxiliary identifiers but
	// leaves status and created_at untouched.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (call_id, owner_id, tracking_id, contact_id, campaign_id, status, created_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?)
		 ON CONFLICT(call_id) DO UPDATE SET
			tracking_id = NULLIF(excluded.tracking_id, ''),
			contact_id  = excluded.contact_id,
			campaign_id = excluded.campaign_id`,
		p.CallID, p.OwnerID, p.TrackingID, p.ContactID, p.CampaignID,
		string(model.CallStatusInitiated), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save call %s", p.CallID)
}

func (s *SQLiteStore) UpdateCallStatus(ctx context.Context, callID string, status model.CallStatus, contactID string) error {
	var err error
	if contactID != "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE calls SET status = ?, completed_at = ?, contact_id = ? WHERE call_id = ?`,
			string(status), time.Now().UTC(), contactID, callID,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE calls SET status = ?, completed_at = ? WHERE call_id = ?`,
			string(status), time.Now().UTC(), callID,
		)
	}
	// A missing row is already-lost state, not an error: zero rows affected
	// is deliberately not checked here.
	return eris.Wrapf(err, "sqlite: update call status %s", callID)
}

const sqliteCallColumns = `call_id, owner_id, tracking_id, contact_id, campaign_id, status, created_at, completed_at`

func (s *SQLiteStore) GetCallByID(ctx context.Context, callID string) (*model.CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCallColumns+` FROM calls WHERE call_id = ?`, callID)
	return scanCall(row)
}

func (s *SQLiteStore) GetCallByTrackingID(ctx context.Context, trackingID string) (*model.CallRecord, error) {
	if trackingID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCallColumns+` FROM calls WHERE tracking_id = ?`, trackingID)
	return scanCall(row)
}

func (s *SQLiteStore) OwnerOf(ctx context.Context, callID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM calls WHERE call_id = ?`, callID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return owner, eris.Wrapf(err, "sqlite: owner of %s", callID)
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r model.ReportRecord) error {
	if err := s.EnsureUser(ctx, r.OwnerID, ""); err != nil {
		return err
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Duplicate report_id is a no-op so a redelivered callback cannot fail
	// the pipeline. An absent call_id becomes NULL, not '', which would trip
	// the calls foreign key.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, owner_id, call_id, type, filename, storage_path, created_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?)
		 ON CONFLICT(report_id) DO NOTHING`,
		r.ReportID, r.OwnerID, r.CallID, string(r.Type), r.Filename, r.StoragePath, createdAt,
	)
	return eris.Wrapf(err, "sqlite: save report %s", r.ReportID)
}

func (s *SQLiteStore) ListReports(ctx context.Context, ownerID string) ([]model.ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, owner_id, call_id, type, filename, storage_path, created_at
		 FROM reports WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var reports []model.ReportRecord
	for rows.Next() {
		var r model.ReportRecord
		var callID sql.NullString
		if err := rows.Scan(&r.ReportID, &r.OwnerID, &callID, &r.Type, &r.Filename, &r.StoragePath, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		r.CallID = callID.String
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

func (s *SQLiteStore) GetReport(ctx context.Context, ownerID, reportID string) (*model.ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report_id, owner_id, call_id, type, filename, storage_path, created_at
		 FROM reports WHERE owner_id = ? AND report_id = ?`,
		ownerID, reportID,
	)

	var r model.ReportRecord
	var callID sql.NullString
	err := row.Scan(&r.ReportID, &r.OwnerID, &callID, &r.Type, &r.Filename, &r.StoragePath, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", reportID)
	}
	r.CallID = callID.String
	return &r, nil
}

func (s *SQLiteStore) UpsertFinancialSnapshot(ctx context.Context, snap *model.FinancialSnapshot) error {
	if err := s.EnsureUser(ctx, snap.OwnerID, ""); err != nil {
		return err
	}

	extraJSON, err := json.Marshal(snap.Extra)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot extra")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO financial_snapshots (owner_id, income, savings, expenses, extra, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
			income = excluded.income,
			savings = excluded.savings,
			expenses = excluded.expenses,
			extra = excluded.extra,
			updated_at = excluded.updated_at`,
		snap.OwnerID, snap.Income, snap.Savings, snap.Expenses, string(extraJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert snapshot %s", snap.OwnerID)
}

func (s *SQLiteStore) GetFinancialSnapshot(ctx context.Context, ownerID string) (*model.FinancialSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner_id, income, savings, expenses, extra, updated_at
		 FROM financial_snapshots WHERE owner_id = ?`,
		ownerID,
	)

	var snap model.FinancialSnapshot
	var extraJSON sql.NullString
	err := row.Scan(&snap.OwnerID, &snap.Income, &snap.Savings, &snap.Expenses, &extraJSON, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", ownerID)
	}
	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &snap.Extra); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal snapshot extra")
		}
	}
	return &snap, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanCall(row scannable) (*model.CallRecord, error) {
	var c model.CallRecord
	var trackingID, contactID, campaignID sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&c.CallID, &c.OwnerID, &trackingID, &contactID, &campaignID, &c.Status, &c.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan call")
	}

	c.TrackingID = trackingID.String
	c.ContactID = contactID.String
	c.CampaignID = campaignID.String
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return &c, nil
}
