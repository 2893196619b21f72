package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/infra/metrics"
)

// Authorizer: платёжный шлюз (в этой версии заглушка payments.Service).
type Authorizer interface {
	Authorize(ctx context.Context, userID string) (string, error)
}

// receipter: провайдер, умеющий дать ссылку на квитанцию.
type receipter interface {
	ReceiptURL(ref string) string
}

type Service struct {
	store    Store
	payments Authorizer
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, payments Authorizer, log *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, payments: payments, log: log, now: now}
}

// NewID выдаёт UUIDv7: идентификаторы растут вместе со временем создания.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", apperr.Unexpected("generate id", err)
	}
	return id.String(), nil
}

var errNoCaller = apperr.New(apperr.CodeUnauthorized, "caller identity is required")

// Create оформляет подписку вызывающему. Если она уже есть: возвращает
// существующую, второй результат при этом false.
func (s *Service) Create(ctx context.Context, callerID string) (*Subscription, bool, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, false, errNoCaller
	}

	existing, err := s.store.GetByUserID(ctx, callerID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if s.payments != nil {
		ref, err := s.payments.Authorize(ctx, callerID)
		if err != nil {
			return nil, false, apperr.Unexpected("authorize payment", err)
		}
		attrs := []any{"user_id", callerID, "ref", ref}
		if r, ok := s.payments.(receipter); ok {
			attrs = append(attrs, "receipt", r.ReceiptURL(ref))
		}
		s.log.Info("subscription payment authorized", attrs...)
	}

	id, err := NewID()
	if err != nil {
		return nil, false, err
	}
	now := s.now().UTC()
	sub, created, err := s.store.CreateIfAbsent(ctx, Subscription{
		ID:                   id,
		UserID:               callerID,
		DailyDrinksRemaining: DailyDrinks,
		LastResetDate:        now,
		CreatedAt:            now,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.SubscriptionsCreated.Inc()
		s.log.Info("subscription created", "user_id", callerID, "subscription_id", sub.ID)
	}
	return sub, created, nil
}

// Get возвращает подписку вызывающего или nil.
func (s *Service) Get(ctx context.Context, callerID string) (*Subscription, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, errNoCaller
	}
	return s.store.GetByUserID(ctx, callerID)
}

// ResetDailyDrinks восстанавливает квоту подпискам, сброшенным более ResetWindow назад.
func (s *Service) ResetDailyDrinks(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	n, err := s.store.ResetStale(ctx, now, now.Add(-ResetWindow))
	if err != nil {
		return 0, fmt.Errorf("reset daily drinks: %w", err)
	}
	metrics.QuotaResets.Add(float64(n))
	s.log.Info("daily drinks reset", "subscriptions", n)
	return n, nil
}
