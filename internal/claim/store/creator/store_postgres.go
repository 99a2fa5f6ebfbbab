package creator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	txcontext "photobook/pkg/platform/tx"
)

// PostgresStore reads and updates creators in PostgreSQL. Creators are owned
// by the catalogue; this store only touches the columns claims need.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts a creator. Used by seeding and tests.
func (s *PostgresStore) Save(ctx context.Context, c *models.Creator) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO creators (id, display_name, status, owner_user_id, website, created_by_user_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			status = EXCLUDED.status,
			owner_user_id = EXCLUDED.owner_user_id,
			website = EXCLUDED.website,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(c.ID), c.DisplayName, string(c.Status), ownerParam(c.OwnerUserID),
		websiteParam(c.Website), uuid.UUID(c.CreatedByUserID), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save creator: %w", err)
	}
	return nil
}

const selectCreator = `
	SELECT id, display_name, status, owner_user_id, website, created_by_user_id, updated_at
	FROM creators WHERE id = $1`

func (s *PostgresStore) FindByID(ctx context.Context, creatorID id.CreatorID) (*models.Creator, error) {
	return scanCreator(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectCreator, uuid.UUID(creatorID)))
}

// Execute locks the creator row with FOR UPDATE, runs validate and mutate, and
// writes the result back. It joins the transaction carried by ctx if any.
func (s *PostgresStore) Execute(ctx context.Context, creatorID id.CreatorID, validate func(*models.Creator) error, mutate func(*models.Creator)) (*models.Creator, error) {
	var out *models.Creator
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		c, err := scanCreator(exec.QueryRowContext(ctx, selectCreator+" FOR UPDATE", uuid.UUID(creatorID)))
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		if _, err := exec.ExecContext(ctx, `
			UPDATE creators SET status = $2, owner_user_id = $3, website = $4, updated_at = $5
			WHERE id = $1`,
			uuid.UUID(c.ID), string(c.Status), ownerParam(c.OwnerUserID), websiteParam(c.Website), c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update creator: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanCreator(row *sql.Row) (*models.Creator, error) {
	var (
		c         models.Creator
		rawID     uuid.UUID
		createdBy uuid.UUID
		owner     uuid.NullUUID
		website   sql.NullString
		status    string
	)
	err := row.Scan(&rawID, &c.DisplayName, &status, &owner, &website, &createdBy, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find creator by id: %w", err)
	}
	c.ID = id.CreatorID(rawID)
	c.CreatedByUserID = id.UserID(createdBy)
	c.Status = models.CreatorStatus(status)
	if owner.Valid {
		o := id.UserID(owner.UUID)
		c.OwnerUserID = &o
	}
	if website.Valid {
		w := website.String
		c.Website = &w
	}
	return &c, nil
}

func ownerParam(owner *id.UserID) uuid.NullUUID {
	if owner == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*owner), Valid: true}
}

func websiteParam(w *string) sql.NullString {
	if w == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *w, Valid: true}
}
