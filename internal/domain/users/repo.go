package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/coffee-club/internal/apperr"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userCols = `user_id, role, telegram_id, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.UserID, &u.Role, &u.TelegramID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Get(ctx context.Context, userID string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM staff WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select staff", err)
	}
	return u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM staff WHERE telegram_id = $1`, tgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select staff by telegram", err)
	}
	return u, nil
}

// Grant выдаёт роль. Если сотрудник уже admin: не понижаем роль;
// telegram_id меняем, только если передан новый.
func (r *Repo) Grant(ctx context.Context, userID string, role Role, telegramID *int64) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO staff (user_id, role, telegram_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id)
		DO UPDATE SET
			role        = CASE WHEN staff.role = 'admin' THEN staff.role ELSE EXCLUDED.role END,
			telegram_id = COALESCE(EXCLUDED.telegram_id, staff.telegram_id),
			updated_at  = now()
		RETURNING `+userCols, userID, role, telegramID))
	if err != nil {
		return nil, apperr.Unexpected("upsert staff", err)
	}
	return u, nil
}

func (r *Repo) Revoke(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE user_id = $1`, userID); err != nil {
		return apperr.Unexpected("delete staff", err)
	}
	return nil
}
