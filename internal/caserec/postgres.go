package caserec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres through the pgx stdlib driver with pool limits
// suited to a small API service.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables and the partial unique index that enforces
// the one-draft-per-(owner,type) invariant at the storage layer.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	password    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS cases (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL REFERENCES users(id),
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	status      TEXT NOT NULL,
	data        JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS cases_one_draft_per_owner_type
	ON cases (owner_id, type) WHERE status = 'DRAFT';

CREATE INDEX IF NOT EXISTS cases_owner_idx ON cases (owner_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresStore persists cases and users in Postgres. The data column is
// written as one JSONB value per update: no partial-field writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping reports whether the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const caseColumns = `id, owner_id, type, title, status, data, created_at, updated_at, expires_at`

func scanCase(row interface{ Scan(...any) error }) (*CaseRecord, error) {
	var rec CaseRecord
	var raw []byte
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Type, &rec.Title, &rec.Status,
		&raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode case data: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec *CaseRecord) error {
	raw, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode case data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.OwnerID, rec.Type, rec.Title, rec.Status, raw,
		rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *CaseRecord) error {
	raw, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode case data: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE cases SET status=$2, data=$3, title=$4, updated_at=$5, expires_at=$6
		WHERE id=$1
	`, rec.ID, rec.Status, raw, rec.Title, rec.UpdatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindDraft(ctx context.Context, ownerID, formType string) (*CaseRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE owner_id=$1 AND type=$2 AND status='DRAFT'
	`, ownerID, formType)
	rec, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find draft: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (*CaseRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE id=$1 AND owner_id=$2
	`, id, ownerID)
	rec, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE owner_id=$1 ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("list cases: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, created_at) VALUES ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create user %s: %w", u.Email, ErrEmailTaken)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password, created_at FROM users WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
