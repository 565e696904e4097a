package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/financebot/financebot/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock's pool
// satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	phone_number TEXT PRIMARY KEY,
	name         TEXT,
	email        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS calls (
	call_id      TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(phone_number),
	tracking_id  TEXT UNIQUE,
	contact_id   TEXT,
	campaign_id  TEXT,
	status       TEXT NOT NULL DEFAULT 'initiated',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS reports (
	report_id    TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(phone_number),
	call_id      TEXT REFERENCES calls(call_id),
	type         TEXT NOT NULL,
	filename     TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS financial_snapshots (
	owner_id   TEXT PRIMARY KEY REFERENCES users(phone_number),
	income     DOUBLE PRECISION NOT NULL DEFAULT 0,
	savings    DOUBLE PRECISION NOT NULL DEFAULT 0,
	expenses   DOUBLE PRECISION NOT NULL DEFAULT 0,
	extra      JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_calls_owner_id ON calls(owner_id);
CREATE INDEX IF NOT EXISTS idx_calls_tracking_id ON calls(tracking_id);
CREATE INDEX IF NOT EXISTS idx_reports_owner_id ON reports(owner_id);
CREATE INDEX IF NOT EXISTS idx_reports_call_id ON reports(call_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) EnsureUser(ctx context.Context, phoneNumber, name string) error {
	if name == "" {
		name = phoneNumber
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (phone_number, name) VALUES ($1, $2)
		 ON CONFLICT (phone_number) DO NOTHING`,
		phoneNumber, name,
	)
	return eris.Wrapf(err, "postgres: ensure user %s", phoneNumber)
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, phoneNumber string) error {
	if err := s.EnsureUser(ctx, phoneNumber, ""); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = now() WHERE phone_number = $1`,
		phoneNumber,
	)
	return eris.Wrapf(err, "postgres: touch last login %s", phoneNumber)
}

func (s *PostgresStore) SaveCall(ctx context.Context, p SaveCallParams) error {
	if err := s.EnsureUser(ctx, p.OwnerID, ""); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO calls (call_id, owner_id, tracking_id, contact_id, campaign_id, status)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		 ON CONFLICT (call_id) DO UPDATE SET
			tracking_id = NULLIF(EXCLUDED.tracking_id, ''),
			contact_id  = EXCLUDED.contact_id,
			campaign_id = EXCLUDED.campaign_id`,
		p.CallID, p.OwnerID, p.TrackingID, p.ContactID, p.CampaignID,
		string(model.CallStatusInitiated),
	)
	return eris.Wrapf(err, "postgres: save call %s", p.CallID)
}

func (s *PostgresStore) UpdateCallStatus(ctx context.Context, callID string, status model.CallStatus, contactID string) error {
	var err error
	if contactID != "" {
		_, err = s.pool.Exec(ctx,
			`UPDATE calls SET status = $1, completed_at = now(), contact_id = $2 WHERE call_id = $3`,
			string(status), contactID, callID,
		)
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE calls SET status = $1, completed_at = now() WHERE call_id = $2`,
			string(status), callID,
		)
	}
	return eris.Wrapf(err, "postgres: update call status %s", callID)
}

const postgresCallColumns = `call_id, owner_id, tracking_id, contact_id, campaign_id, status, created_at, completed_at`

func (s *PostgresStore) GetCallByID(ctx context.Context, callID string) (*model.CallRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresCallColumns+` FROM calls WHERE call_id = $1`, callID)
	return scanPgCall(row)
}

func (s *PostgresStore) GetCallByTrackingID(ctx context.Context, trackingID string) (*model.CallRecord, error) {
	if trackingID == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresCallColumns+` FROM calls WHERE tracking_id = $1`, trackingID)
	return scanPgCall(row)
}

func (s *PostgresStore) OwnerOf(ctx context.Context, callID string) (string, error) {
	var owner string
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id FROM calls WHERE call_id = $1`, callID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return owner, eris.Wrapf(err, "postgres: owner of %s", callID)
}

func (s *PostgresStore) SaveReport(ctx context.Context, r model.ReportRecord) error {
	if err := s.EnsureUser(ctx, r.OwnerID, ""); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (report_id, owner_id, call_id, type, filename, storage_path)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		 ON CONFLICT (report_id) DO NOTHING`,
		r.ReportID, r.OwnerID, r.CallID, string(r.Type), r.Filename, r.StoragePath,
	)
	return eris.Wrapf(err, "postgres: save report %s", r.ReportID)
}

func (s *PostgresStore) ListReports(ctx context.Context, ownerID string) ([]model.ReportRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT report_id, owner_id, call_id, type, filename, storage_path, created_at
		 FROM reports WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []model.ReportRecord
	for rows.Next() {
		var r model.ReportRecord
		var callID *string
		if err := rows.Scan(&r.ReportID, &r.OwnerID, &callID, &r.Type, &r.Filename, &r.StoragePath, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		if callID != nil {
			r.CallID = *callID
		}
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func (s *PostgresStore) GetReport(ctx context.Context, ownerID, reportID string) (*model.ReportRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT report_id, owner_id, call_id, type, filename, storage_path, created_at
		 FROM reports WHERE owner_id = $1 AND report_id = $2`,
		ownerID, reportID,
	)

	var r model.ReportRecord
	var callID *string
	err := row.Scan(&r.ReportID, &r.OwnerID, &callID, &r.Type, &r.Filename, &r.StoragePath, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", reportID)
	}
	if callID != nil {
		r.CallID = *callID
	}
	return &r, nil
}

func (s *PostgresStore) UpsertFinancialSnapshot(ctx context.Context, snap *model.FinancialSnapshot) error {
	if err := s.EnsureUser(ctx, snap.OwnerID, ""); err != nil {
		return err
	}

	extraJSON, err := json.Marshal(snap.Extra)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot extra")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO financial_snapshots (owner_id, income, savings, expenses, extra, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (owner_id) DO UPDATE SET
			income = EXCLUDED.income,
			savings = EXCLUDED.savings,
			expenses = EXCLUDED.expenses,
			extra = EXCLUDED.extra,
			updated_at = now()`,
		snap.OwnerID, snap.Income, snap.Savings, snap.Expenses, string(extraJSON),
	)
	return eris.Wrapf(err, "postgres: upsert snapshot %s", snap.OwnerID)
}

func (s *PostgresStore) GetFinancialSnapshot(ctx context.Context, ownerID string) (*model.FinancialSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT owner_id, income, savings, expenses, extra, updated_at
		 FROM financial_snapshots WHERE owner_id = $1`,
		ownerID,
	)

	var snap model.FinancialSnapshot
	var extraJSON []byte
	err := row.Scan(&snap.OwnerID, &snap.Income, &snap.Savings, &snap.Expenses, &extraJSON, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", ownerID)
	}
	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &snap.Extra); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal snapshot extra")
		}
	}
	return &snap, nil
}

func scanPgCall(row pgx.Row) (*model.CallRecord, error) {
	var c model.CallRecord
	var trackingID, contactID, campaignID *string
	var completedAt *time.Time

	err := row.Scan(&c.CallID, &c.OwnerID, &trackingID, &contactID, &campaignID, &c.Status, &c.CreatedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan call")
	}

	if trackingID != nil {
		c.TrackingID = *trackingID
	}
	if contactID != nil {
		c.ContactID = *contactID
	}
	if campaignID != nil {
		c.CampaignID = *campaignID
	}
	c.CompletedAt = completedAt
	return &c, nil
}
