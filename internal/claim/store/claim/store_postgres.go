package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	"photobook/pkg/platform/sentinel"
	txcontext "photobook/pkg/platform/tx"
)

const uniqueViolation = "23505"

const claimColumns = `id, creator_id, user_id, status, verification_method, verification_url,
	verification_code, code_expires_at, verified_at, requested_at, reviewed_at, reviewed_by, review_note`

// PostgresStore persists claims in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Claim) error {
	query := `INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.CreatorID),
		uuid.UUID(c.UserID),
		string(c.Status),
		string(c.VerificationMethod),
		nullString(c.VerificationURL),
		c.VerificationCode,
		c.CodeExpiresAt,
		nullTime(c.VerifiedAt),
		c.RequestedAt,
		nullTime(c.ReviewedAt),
		c.ReviewedBy,
		c.ReviewNote,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, uuid.UUID(claimID))
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find claim by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindPendingByUserAndCreator(ctx context.Context, userID id.UserID, creatorID id.CreatorID) (*models.Claim, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims
		WHERE user_id = $1 AND creator_id = $2 AND status = 'pending'
		ORDER BY requested_at DESC LIMIT 1`,
		uuid.UUID(userID), uuid.UUID(creatorID))
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find pending claim: %w", err)
	}
	return c, nil
}

// UpdateStatus writes the mutable columns of c, guarded on the stored status
// still being from. A lost race returns sentinel.ErrInvalidState.
func (s *PostgresStore) UpdateStatus(ctx context.Context, c *models.Claim, from models.ClaimStatus) error {
	exec := txcontext.Executor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE claims SET
			status = $2,
			verified_at = $3,
			reviewed_at = $4,
			reviewed_by = $5,
			review_note = $6
		WHERE id = $1 AND status = $7`,
		uuid.UUID(c.ID),
		string(c.Status),
		nullTime(c.VerifiedAt),
		nullTime(c.ReviewedAt),
		c.ReviewedBy,
		c.ReviewNote,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, uuid.UUID(c.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("check claim exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) Delete(ctx context.Context, claimID id.ClaimID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...models.ClaimStatus) ([]*models.Claim, error) {
	values := make([]string, 0, len(statuses))
	for _, st := range statuses {
		values = append(values, string(st))
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE status = ANY($1::text[]) ORDER BY requested_at ASC`,
		pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("list claims by status: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list claims by status: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row scanner) (*models.Claim, error) {
	var (
		c                          models.Claim
		claimID, creatorID, userID uuid.UUID
		status, method             string
		verificationURL            sql.NullString
		verifiedAt, reviewedAt     sql.NullTime
	)
	err := row.Scan(
		&claimID, &creatorID, &userID, &status, &method, &verificationURL,
		&c.VerificationCode, &c.CodeExpiresAt, &verifiedAt, &c.RequestedAt,
		&reviewedAt, &c.ReviewedBy, &c.ReviewNote,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ClaimID(claimID)
	c.CreatorID = id.CreatorID(creatorID)
	c.UserID = id.UserID(userID)
	c.Status = models.ClaimStatus(status)
	c.VerificationMethod = models.VerificationMethod(method)
	if verificationURL.Valid {
		u := verificationURL.String
		c.VerificationURL = &u
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.VerifiedAt = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		c.ReviewedAt = &t
	}
	return &c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
