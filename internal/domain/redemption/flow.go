package redemption

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	"github.com/Spok95/coffee-club/internal/infra/metrics"
)

// State: шаг сценария «скан QR → статус → подтверждение → погашение».
type State string

const (
	StatePendingLookup  State = "PENDING_LOOKUP"
	StateVerified       State = "VERIFIED"
	StateRedeemed       State = "REDEEMED"
	StateNotFound       State = "NOT_FOUND"
	StateQuotaExhausted State = "QUOTA_EXHAUSTED"
)

const maxKeyLen = 128

var errBadKey = apperr.New(apperr.CodeInvalid, "idempotency key is too long")

type Verification struct {
	State        State
	Subscription *subscriptions.Subscription
}

type Outcome struct {
	State        State
	Subscription *subscriptions.Subscription
	Redemption   *subscriptions.Redemption
	Replayed     bool
}

type Request struct {
	SubscriptionID string
	// IdempotencyKey пустой: каждый вызов списывает новую порцию.
	IdempotencyKey string
	// RedeemedBy: кто подтвердил: сам клиент или сотрудник.
	RedeemedBy string
}

type Flow struct {
	store subscriptions.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewFlow(store subscriptions.Store, log *slog.Logger, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	return &Flow{store: store, log: log, now: now}
}

func verified(s *subscriptions.Subscription, err error) (Verification, error) {
	if err != nil {
		return Verification{State: StatePendingLookup}, err
	}
	if s == nil {
		return Verification{State: StateNotFound}, subscriptions.ErrNotFound
	}
	return Verification{State: StateVerified, Subscription: s}, nil
}

// VerifyByID: путь сотрудника: id из QR-кода. Ничего не меняет.
func (f *Flow) VerifyByID(ctx context.Context, subscriptionID string) (Verification, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return Verification{State: StateNotFound}, subscriptions.ErrNotFound
	}
	return verified(f.store.GetByID(ctx, subscriptionID))
}

// VerifyByUser: поиск по владельцу.
func (f *Flow) VerifyByUser(ctx context.Context, userID string) (Verification, error) {
	if strings.TrimSpace(userID) == "" {
		return Verification{State: StateNotFound}, subscriptions.ErrNotFound
	}
	return verified(f.store.GetByUserID(ctx, userID))
}

// Redeem списывает одну порцию. Списание и запись в журнал: одна
// транзакция хранилища; при исчерпанной квоте ничего не меняется.
func (f *Flow) Redeem(ctx context.Context, req Request) (Outcome, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxKeyLen {
		return Outcome{State: StatePendingLookup}, errBadKey
	}
	if strings.TrimSpace(req.SubscriptionID) == "" {
		metrics.Redemptions.WithLabelValues(metrics.ResultNotFound).Inc()
		return Outcome{State: StateNotFound}, subscriptions.ErrNotFound
	}

	id, err := subscriptions.NewID()
	if err != nil {
		return Outcome{State: StatePendingLookup}, err
	}
	res, err := f.store.Redeem(ctx, subscriptions.Redemption{
		ID:             id,
		SubscriptionID: req.SubscriptionID,
		IdempotencyKey: key,
		RedeemedBy:     req.RedeemedBy,
		CreatedAt:      f.now().UTC(),
	})
	if err != nil {
		switch apperr.CodeOf(err) {
		case apperr.CodeNotFound:
			metrics.Redemptions.WithLabelValues(metrics.ResultNotFound).Inc()
			return Outcome{State: StateNotFound}, err
		case apperr.CodeQuotaExhausted:
			metrics.Redemptions.WithLabelValues(metrics.ResultExhausted).Inc()
			return Outcome{State: StateQuotaExhausted}, err
		default:
			metrics.Redemptions.WithLabelValues(metrics.ResultError).Inc()
			return Outcome{State: StatePendingLookup}, err
		}
	}

	if res.Replayed {
		metrics.Redemptions.WithLabelValues(metrics.ResultReplayed).Inc()
		f.log.Info("redemption replayed",
			"subscription_id", req.SubscriptionID,
			"redemption_id", res.Redemption.ID,
			"by", req.RedeemedBy,
		)
	} else {
		metrics.Redemptions.WithLabelValues(metrics.ResultRedeemed).Inc()
		f.log.Info("drink redeemed",
			"subscription_id", req.SubscriptionID,
			"redemption_id", res.Redemption.ID,
			"remaining", res.Subscription.DailyDrinksRemaining,
			"by", req.RedeemedBy,
		)
	}
	return Outcome{
		State:        StateRedeemed,
		Subscription: res.Subscription,
		Redemption:   res.Redemption,
		Replayed:     res.Replayed,
	}, nil
}

// RedeemForUser находит подписку владельца и гасит порцию по ней.
func (f *Flow) RedeemForUser(ctx context.Context, userID, key, by string) (Outcome, error) {
	v, err := f.VerifyByUser(ctx, userID)
	if err != nil {
		if v.State == StateNotFound {
			metrics.Redemptions.WithLabelValues(metrics.ResultNotFound).Inc()
		}
		return Outcome{State: v.State}, err
	}
	return f.Redeem(ctx, Request{SubscriptionID: v.Subscription.ID, IdempotencyKey: key, RedeemedBy: by})
}

// History: журнал погашений, новые сверху.
func (f *Flow) History(ctx context.Context, subscriptionID string) ([]subscriptions.Redemption, error) {
	return f.store.ListRedemptions(ctx, subscriptionID)
}
