package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/coffee-club/internal/apperr"
)

const pgUniqueViolation = "23505"

// Repo: хранилище на Postgres.
type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

const subscriptionCols = `id,user_id,daily_drinks_remaining,last_reset_date,created_at`
const redemptionCols = `id,subscription_id,COALESCE(idempotency_key,''),redeemed_by,created_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.DailyDrinksRemaining,
		&s.LastResetDate,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanRedemption(row pgx.Row) (*Redemption, error) {
	var r Redemption
	if err := row.Scan(&r.ID, &r.SubscriptionID, &r.IdempotencyKey, &r.RedeemedBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Repo) GetByUserID(ctx context.Context, userID string) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select subscription by user", err)
	}
	return s, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected("select subscription", err)
	}
	return s, nil
}

// CreateIfAbsent вставляет подписку, если у пользователя её ещё нет.
// Второй результат: была ли строка создана этим вызовом.
func (r *Repo) CreateIfAbsent(ctx context.Context, s Subscription) (*Subscription, bool, error) {
	const q = `
INSERT INTO subscriptions (id, user_id, daily_drinks_remaining, last_reset_date, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, q, s.ID, s.UserID, s.DailyDrinksRemaining, s.LastResetDate, s.CreatedAt)
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
	return got, tag.RowsAffected() == 1, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// priorByKey ищет погашение с тем же ключом; ok=false, если его нет.
func priorByKey(ctx context.Context, q rowQuerier, subscriptionID, key string) (RedeemResult, bool, error) {
	prior, err := scanRedemption(q.QueryRow(ctx,
		`SELECT `+redemptionCols+` FROM redemptions WHERE subscription_id=$1 AND idempotency_key=$2`,
		subscriptionID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return RedeemResult{}, false, nil
	}
	if err != nil {
		return RedeemResult{}, false, apperr.Unexpected("select redemption by key", err)
	}
	s, err := scanSubscription(q.QueryRow(ctx,
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE id=$1`, subscriptionID))
	if err != nil {
		return RedeemResult{}, false, apperr.Unexpected("select subscription", err)
	}
	return RedeemResult{Subscription: s, Redemption: prior, Replayed: true}, true, nil
}

// Redeem списывает порцию и пишет журнал в одной транзакции.
// Условный UPDATE берёт блокировку строки, поэтому параллельные
// погашения одной подписки не могут увести остаток ниже нуля.
func (r *Repo) Redeem(ctx context.Context, red Redemption) (RedeemResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return RedeemResult{}, apperr.Unexpected("begin redeem", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if red.IdempotencyKey != "" {
		if res, ok, err := priorByKey(ctx, tx, red.SubscriptionID, red.IdempotencyKey); err != nil || ok {
			return res, err
		}
	}

	const dec = `
UPDATE subscriptions
SET daily_drinks_remaining = daily_drinks_remaining - 1
WHERE id = $1
  AND daily_drinks_remaining > 0
RETURNING ` + subscriptionCols
	s, err := scanSubscription(tx.QueryRow(ctx, dec, red.SubscriptionID))
	if errors.Is(err, pgx.ErrNoRows) {
		// либо подписки нет, либо квота кончилась;
		// конкурирующий повтор с тем же ключом мог выбрать последнюю порцию
		if red.IdempotencyKey != "" {
			if res, ok, err := priorByKey(ctx, tx, red.SubscriptionID, red.IdempotencyKey); err != nil || ok {
				return res, err
			}
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id=$1)`, red.SubscriptionID).Scan(&exists); err != nil {
			return RedeemResult{}, apperr.Unexpected("check subscription", err)
		}
		if !exists {
			return RedeemResult{}, ErrNotFound
		}
		return RedeemResult{}, ErrQuotaExhausted
	}
	if err != nil {
		return RedeemResult{}, apperr.Unexpected("decrement quota", err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO redemptions (id, subscription_id, idempotency_key, redeemed_by, created_at)
VALUES ($1,$2,$3,$4,$5)`,
		red.ID, red.SubscriptionID, nullableKey(red.IdempotencyKey), red.RedeemedBy, red.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && red.IdempotencyKey != "" {
			// параллельный повтор с тем же ключом успел раньше, наше списание откатываем
			_ = tx.Rollback(ctx)
			res, ok, err := priorByKey(ctx, r.db, red.SubscriptionID, red.IdempotencyKey)
			if err == nil && !ok {
				err = apperr.Unexpected("insert redemption", pgErr)
			}
			return res, err
		}
		return RedeemResult{}, apperr.Unexpected("insert redemption", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return RedeemResult{}, apperr.Unexpected("commit redeem", err)
	}
	out := red
	return RedeemResult{Subscription: s, Redemption: &out}, nil
}

// ResetStale восстанавливает квоту всем, у кого last_reset_date < cutoff.
// Проверка и запись: один оператор, так что строка не сбросится дважды.
func (r *Repo) ResetStale(ctx context.Context, now, cutoff time.Time) (int64, error) {
	const q = `
UPDATE subscriptions
SET daily_drinks_remaining = $1,
    last_reset_date = $2
WHERE last_reset_date < $3`
	tag, err := r.db.Exec(ctx, q, DailyDrinks, now, cutoff)
	if err != nil {
		return 0, apperr.Unexpected("reset daily drinks", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) ListRedemptions(ctx context.Context, subscriptionID string) ([]Redemption, error) {
	rows, err := r.db.Query(ctx, `SELECT `+redemptionCols+` FROM redemptions
	           WHERE subscription_id=$1
	           ORDER BY created_at DESC, id DESC`, subscriptionID)
	if err != nil {
		return nil, apperr.Unexpected("select redemptions", err)
	}
	defer rows.Close()

	out := []Redemption{}
	for rows.Next() {
		red, err := scanRedemption(rows)
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

func nullableKey(k string) any {
	if k == "" {
		return nil
	}
	return k
}
