package subscriptions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
)

var t0 = time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC)

func seed(t *testing.T, store subscriptions.Store, userID string, remaining int, lastReset time.Time) *subscriptions.Subscription {
	t.Helper()
	id, err := subscriptions.NewID()
	require.NoError(t, err)
	s, created, err := store.CreateIfAbsent(context.Background(), subscriptions.Subscription{
		ID:                   id,
		UserID:               userID,
		DailyDrinksRemaining: remaining,
		LastResetDate:        lastReset,
		CreatedAt:            lastReset,
	})
	require.NoError(t, err)
	require.True(t, created)
	return s
}

func redemption(t *testing.T, subID, key string, at time.Time) subscriptions.Redemption {
	t.Helper()
	id, err := subscriptions.NewID()
	require.NoError(t, err)
	return subscriptions.Redemption{ID: id, SubscriptionID: subID, IdempotencyKey: key, RedeemedBy: "barista", CreatedAt: at}
}

// runStoreContract проверяет инварианты, общие для всех реализаций Store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) subscriptions.Store) {
	ctx := context.Background()

	t.Run("create is idempotent per user", func(t *testing.T) {
		store := newStore(t)
		first := seed(t, store, "u1", subscriptions.DailyDrinks, t0)

		id, err := subscriptions.NewID()
		require.NoError(t, err)
		again, created, err := store.CreateIfAbsent(ctx, subscriptions.Subscription{
			ID: id, UserID: "u1", DailyDrinksRemaining: subscriptions.DailyDrinks, LastResetDate: t0, CreatedAt: t0,
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.True(t, again.CreatedAt.Equal(t0))
	})

	t.Run("get absent returns nil without error", func(t *testing.T) {
		store := newStore(t)
		s, err := store.GetByUserID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, s)

		s, err = store.GetByID(ctx, "missing-id")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("redeem until exhausted", func(t *testing.T) {
		store := newStore(t)
		sub := seed(t, store, "u1", subscriptions.DailyDrinks, t0)

		for want := 2; want >= 0; want-- {
			res, err := store.Redeem(ctx, redemption(t, sub.ID, "", t0.Add(time.Minute)))
			require.NoError(t, err)
			assert.False(t, res.Replayed)
			assert.Equal(t, want, res.Subscription.DailyDrinksRemaining)
			assert.Equal(t, sub.ID, res.Redemption.SubscriptionID)
		}

		_, err := store.Redeem(ctx, redemption(t, sub.ID, "", t0.Add(time.Hour)))
		assert.ErrorIs(t, err, subscriptions.ErrQuotaExhausted)
		assert.Equal(t, apperr.CodeQuotaExhausted, apperr.CodeOf(err))

		rows, err := store.ListRedemptions(ctx, sub.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
		for _, r := range rows {
			assert.Equal(t, sub.ID, r.SubscriptionID)
		}

		got, err := store.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DailyDrinksRemaining)
	})

	t.Run("redeem unknown subscription", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Redeem(ctx, redemption(t, "does-not-exist", "", t0))
		assert.ErrorIs(t, err, subscriptions.ErrNotFound)

		rows, err := store.ListRedemptions(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("concurrent redeems never exceed quota", func(t *testing.T) {
		store := newStore(t)
		const k, n = 2, 12
		sub := seed(t, store, "u1", k, t0)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			exhausted int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := subscriptions.NewID()
				if !assert.NoError(t, err) {
					return
				}
				_, err = store.Redeem(ctx, subscriptions.Redemption{
					ID: id, SubscriptionID: sub.ID, RedeemedBy: "barista", CreatedAt: t0,
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case apperr.CodeOf(err) == apperr.CodeQuotaExhausted:
					exhausted++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, k, ok)
		assert.Equal(t, n-k, exhausted)

		rows, err := store.ListRedemptions(ctx, sub.ID)
		require.NoError(t, err)
		assert.Len(t, rows, k)

		got, err := store.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DailyDrinksRemaining)
	})

	t.Run("idempotency key replays without a second decrement", func(t *testing.T) {
		store := newStore(t)
		sub := seed(t, store, "u1", subscriptions.DailyDrinks, t0)

		first, err := store.Redeem(ctx, redemption(t, sub.ID, "scan-42", t0))
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := store.Redeem(ctx, redemption(t, sub.ID, "scan-42", t0.Add(time.Second)))
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Redemption.ID, second.Redemption.ID)
		assert.Equal(t, "scan-42", second.Redemption.IdempotencyKey)
		assert.Equal(t, 2, second.Subscription.DailyDrinksRemaining)

		rows, err := store.ListRedemptions(ctx, sub.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("concurrent retries with one key redeem once", func(t *testing.T) {
		store := newStore(t)
		sub := seed(t, store, "u1", subscriptions.DailyDrinks, t0)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := subscriptions.NewID()
				if !assert.NoError(t, err) {
					return
				}
				_, err = store.Redeem(ctx, subscriptions.Redemption{
					ID: id, SubscriptionID: sub.ID, IdempotencyKey: "retry", RedeemedBy: "u1", CreatedAt: t0,
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		rows, err := store.ListRedemptions(ctx, sub.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		got, err := store.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.DailyDrinksRemaining)
	})

	t.Run("same key on different subscriptions is independent", func(t *testing.T) {
		store := newStore(t)
		a := seed(t, store, "u1", subscriptions.DailyDrinks, t0)
		b := seed(t, store, "u2", subscriptions.DailyDrinks, t0)

		ra, err := store.Redeem(ctx, redemption(t, a.ID, "k", t0))
		require.NoError(t, err)
		rb, err := store.Redeem(ctx, redemption(t, b.ID, "k", t0))
		require.NoError(t, err)
		assert.False(t, ra.Replayed)
		assert.False(t, rb.Replayed)
	})

	t.Run("reset only touches stale rows once per window", func(t *testing.T) {
		store := newStore(t)
		stale := seed(t, store, "stale", 0, t0.Add(-25*time.Hour))
		fresh := seed(t, store, "fresh", 1, t0.Add(-time.Hour))

		n, err := store.ResetStale(ctx, t0, t0.Add(-subscriptions.ResetWindow))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := store.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, subscriptions.DailyDrinks, got.DailyDrinksRemaining)
		assert.True(t, got.LastResetDate.Equal(t0))

		got, err = store.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.DailyDrinksRemaining)

		later := t0.Add(10 * time.Minute)
		n, err = store.ResetStale(ctx, later, later.Add(-subscriptions.ResetWindow))
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("history is newest first", func(t *testing.T) {
		store := newStore(t)
		sub := seed(t, store, "u1", subscriptions.DailyDrinks, t0)
		for i := 0; i < 3; i++ {
			_, err := store.Redeem(ctx, redemption(t, sub.ID, fmt.Sprintf("k%d", i), t0.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}
		rows, err := store.ListRedemptions(ctx, sub.ID)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "k2", rows[0].IdempotencyKey)
		assert.Equal(t, "k0", rows[2].IdempotencyKey)
	})
}
