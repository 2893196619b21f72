package subscriptions

import (
	"context"
	"time"

	"github.com/Spok95/coffee-club/internal/apperr"
)

const (
	// DailyDrinks: дневная квота и верхняя граница daily_drinks_remaining.
	DailyDrinks = 3
	// ResetWindow: квота восстанавливается не чаще раза за это окно.
	ResetWindow = 24 * time.Hour
)

var (
	ErrNotFound       = apperr.New(apperr.CodeNotFound, "subscription not found")
	ErrQuotaExhausted = apperr.New(apperr.CodeQuotaExhausted, "no drinks remaining today")
)

type Subscription struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	DailyDrinksRemaining int       `json:"daily_drinks_remaining"`
	LastResetDate        time.Time `json:"last_reset_date"`
	CreatedAt            time.Time `json:"created_at"`
}

// Redemption: запись журнала выпитых напитков, только добавление.
type Redemption struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	RedeemedBy     string    `json:"redeemed_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type RedeemResult struct {
	Subscription *Subscription
	Redemption   *Redemption
	// Replayed: ключ уже встречался, списания не было.
	Replayed bool
}

// Store: слой хранения подписок и журнала погашений.
// Redeem обязан атомарно списать одну порцию и записать Redemption,
// либо не сделать ничего.
type Store interface {
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	GetByID(ctx context.Context, id string) (*Subscription, error)
	CreateIfAbsent(ctx context.Context, s Subscription) (*Subscription, bool, error)
	Redeem(ctx context.Context, r Redemption) (RedeemResult, error)
	ResetStale(ctx context.Context, now, cutoff time.Time) (int64, error)
	ListRedemptions(ctx context.Context, subscriptionID string) ([]Redemption, error)
}
