package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/infra/db"
)

type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(sqlDB *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sqlDB, now: time.Now} }

func scanSQLiteUser(row *sql.Row) (*User, error) {
	var (
		u                User
		tg               sql.NullInt64
		created, updated string
		err              error
	)
	if err = row.Scan(&u.UserID, &u.Role, &tg, &created, &updated); err != nil {
		return nil, err
	}
	if tg.Valid {
		v := tg.Int64
		u.TelegramID = &v
	}
	if u.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = db.ParseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteRepo) one(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM staff WHERE `+where+` = ?`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select staff", err)
	}
	return u, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, userID string) (*User, error) {
	return r.one(ctx, "user_id", userID)
}

func (r *SQLiteRepo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	return r.one(ctx, "telegram_id", tgID)
}

func (r *SQLiteRepo) Grant(ctx context.Context, userID string, role Role, telegramID *int64) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	now := db.FormatTime(r.now())
	var tg any
	if telegramID != nil {
		tg = *telegramID
	}
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, `
		INSERT INTO staff (user_id, role, telegram_id, created_at, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (user_id)
		DO UPDATE SET
			role        = CASE WHEN staff.role = 'admin' THEN staff.role ELSE excluded.role END,
			telegram_id = COALESCE(excluded.telegram_id, staff.telegram_id),
			updated_at  = excluded.updated_at
		RETURNING `+userCols, userID, string(role), tg, now, now))
	if err != nil {
		return nil, apperr.Unexpected("upsert staff", err)
	}
	return u, nil
}

func (r *SQLiteRepo) Revoke(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE user_id = ?`, userID); err != nil {
		return apperr.Unexpected("delete staff", err)
	}
	return nil
}
