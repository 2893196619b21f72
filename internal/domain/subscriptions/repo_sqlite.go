package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/infra/db"
)

// SQLiteRepo: хранилище на SQLite для локального запуска и тестов.
// Рассчитано на пул из одного соединения (db.OpenSQLite).
type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(sqlDB *sql.DB) *SQLiteRepo { return &SQLiteRepo{db: sqlDB} }

type sqlRowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanSQLiteSubscription(row *sql.Row) (*Subscription, error) {
	var (
		s                  Subscription
		lastReset, created string
		err                error
	)
	if err = row.Scan(&s.ID, &s.UserID, &s.DailyDrinksRemaining, &lastReset, &created); err != nil {
		return nil, err
	}
	if s.LastResetDate, err = db.ParseTime(lastReset); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	return &s, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanSQLiteRedemption(row scanner) (*Redemption, error) {
	var (
		r       Redemption
		created string
		err     error
	)
	if err = row.Scan(&r.ID, &r.SubscriptionID, &r.IdempotencyKey, &r.RedeemedBy, &created); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *SQLiteRepo) get(ctx context.Context, q sqlRowQuerier, where string, arg string) (*Subscription, error) {
	s, err := scanSQLiteSubscription(q.QueryRowContext(ctx,
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE `+where+`=?`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select subscription", err)
	}
	return s, nil
}

func (r *SQLiteRepo) GetByUserID(ctx context.Context, userID string) (*Subscription, error) {
	return r.get(ctx, r.db, "user_id", userID)
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id string) (*Subscription, error) {
	return r.get(ctx, r.db, "id", id)
}

func (r *SQLiteRepo) CreateIfAbsent(ctx context.Context, s Subscription) (*Subscription, bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO subscriptions (id, user_id, daily_drinks_remaining, last_reset_date, created_at)
VALUES (?,?,?,?,?)
ON CONFLICT (user_id) DO NOTHING`,
		s.ID, s.UserID, s.DailyDrinksRemaining, db.FormatTime(s.LastResetDate), db.FormatTime(s.CreatedAt))
	if err != nil {
		return nil, false, apperr.Unexpected("insert subscription", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, apperr.Unexpected("insert subscription", err)
	}
	got, err := r.GetByUserID(ctx, s.UserID)
	if err != nil {
		return nil, false, err
	}
	if got == nil {
		return nil, false, apperr.Unexpected("insert subscription", errors.New("row missing after upsert"))
	}
	return got, n == 1, nil
}

func (r *SQLiteRepo) priorByKey(ctx context.Context, q sqlRowQuerier, subscriptionID, key string) (RedeemResult, bool, error) {
	prior, err := scanSQLiteRedemption(q.QueryRowContext(ctx,
		`SELECT `+redemptionCols+` FROM redemptions WHERE subscription_id=? AND idempotency_key=?`,
		subscriptionID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return RedeemResult{}, false, nil
	}
	if err != nil {
		return RedeemResult{}, false, apperr.Unexpected("select redemption by key", err)
	}
	s, err := r.get(ctx, q, "id", subscriptionID)
	if err != nil {
		return RedeemResult{}, false, err
	}
	return RedeemResult{Subscription: s, Redemption: prior, Replayed: true}, true, nil
}

// Redeem: то же, что Repo.Redeem; сериализацию даёт единственное соединение пула.
func (r *SQLiteRepo) Redeem(ctx context.Context, red Redemption) (RedeemResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return RedeemResult{}, apperr.Unexpected("begin redeem", err)
	}
	defer func() { _ = tx.Rollback() }()

	if red.IdempotencyKey != "" {
		if res, ok, err := r.priorByKey(ctx, tx, red.SubscriptionID, red.IdempotencyKey); err != nil || ok {
			return res, err
		}
	}

	s, err := scanSQLiteSubscription(tx.QueryRowContext(ctx, `
UPDATE subscriptions
SET daily_drinks_remaining = daily_drinks_remaining - 1
WHERE id = ?
  AND daily_drinks_remaining > 0
RETURNING `+subscriptionCols, red.SubscriptionID))
	if errors.Is(err, sql.ErrNoRows) {
		cur, err := r.get(ctx, tx, "id", red.SubscriptionID)
		if err != nil {
			return RedeemResult{}, err
		}
		if cur == nil {
			return RedeemResult{}, ErrNotFound
		}
		return RedeemResult{}, ErrQuotaExhausted
	}
	if err != nil {
		return RedeemResult{}, apperr.Unexpected("decrement quota", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO redemptions (id, subscription_id, idempotency_key, redeemed_by, created_at)
VALUES (?,?,?,?,?)`,
		red.ID, red.SubscriptionID, nullableKey(red.IdempotencyKey), red.RedeemedBy, db.FormatTime(red.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) && red.IdempotencyKey != "" {
			_ = tx.Rollback()
			res, ok, err := r.priorByKey(ctx, r.db, red.SubscriptionID, red.IdempotencyKey)
			if err == nil && !ok {
				err = apperr.Unexpected("insert redemption", errors.New("unique violation without prior row"))
			}
			return res, err
		}
		return RedeemResult{}, apperr.Unexpected("insert redemption", err)
	}

	if err := tx.Commit(); err != nil {
		return RedeemResult{}, apperr.Unexpected("commit redeem", err)
	}
	out := red
	return RedeemResult{Subscription: s, Redemption: &out}, nil
}

func (r *SQLiteRepo) ResetStale(ctx context.Context, now, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE subscriptions
SET daily_drinks_remaining = ?,
    last_reset_date = ?
WHERE last_reset_date < ?`, DailyDrinks, db.FormatTime(now), db.FormatTime(cutoff))
	if err != nil {
		return 0, apperr.Unexpected("reset daily drinks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Unexpected("reset daily drinks", err)
	}
	return n, nil
}

func (r *SQLiteRepo) ListRedemptions(ctx context.Context, subscriptionID string) ([]Redemption, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+redemptionCols+` FROM redemptions
	           WHERE subscription_id=?
	           ORDER BY created_at DESC, id DESC`, subscriptionID)
	if err != nil {
		return nil, apperr.Unexpected("select redemptions", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Redemption{}
	for rows.Next() {
		red, err := scanSQLiteRedemption(rows)
		if err != nil {
			return nil, apperr.Unexpected("scan redemption", err)
		}
		out = append(out, *red)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected("select redemptions", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
