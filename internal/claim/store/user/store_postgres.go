package user

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

// PostgresStore reads users from the shared users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, u *models.User) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`,
		uuid.UUID(u.ID), u.Email)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var (
		u     models.User
		rawID uuid.UUID
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE id = $1`, uuid.UUID(userID)).Scan(&rawID, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}
