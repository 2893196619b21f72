package redemption_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/redemption"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	"github.com/Spok95/coffee-club/internal/testutil"
)

type fixture struct {
	store *subscriptions.SQLiteRepo
	subs  *subscriptions.Service
	flow  *redemption.Flow
	clock *testutil.Clock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := testutil.NewClock(time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC))
	store := subscriptions.NewSQLiteRepo(testutil.NewSQLite(t))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		store: store,
		subs:  subscriptions.NewService(store, nil, log, clock.Now),
		flow:  redemption.NewFlow(store, log, clock.Now),
		clock: clock,
	}
}

func TestFlow_ThreeDrinksThenExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, created, err := f.subs.Create(ctx, "u1")
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 3, sub.DailyDrinksRemaining)

	for i := 0; i < 3; i++ {
		out, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, RedeemedBy: "u1"})
		require.NoError(t, err)
		assert.Equal(t, redemption.StateRedeemed, out.State)
		assert.Equal(t, 2-i, out.Subscription.DailyDrinksRemaining)
		f.clock.Advance(time.Minute)
	}

	out, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, RedeemedBy: "u1"})
	assert.ErrorIs(t, err, subscriptions.ErrQuotaExhausted)
	assert.Equal(t, redemption.StateQuotaExhausted, out.State)
	assert.Nil(t, out.Subscription)

	history, err := f.flow.History(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, r := range history {
		assert.Equal(t, sub.ID, r.SubscriptionID)
		assert.Equal(t, "u1", r.RedeemedBy)
	}

	v, err := f.flow.VerifyByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Subscription.DailyDrinksRemaining)
}

func TestFlow_VerifyUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	v, err := f.flow.VerifyByID(ctx, "no-such-subscription")
	assert.ErrorIs(t, err, subscriptions.ErrNotFound)
	assert.Equal(t, redemption.StateNotFound, v.State)

	v, err = f.flow.VerifyByUser(ctx, "ghost")
	assert.ErrorIs(t, err, subscriptions.ErrNotFound)
	assert.Equal(t, redemption.StateNotFound, v.State)

	v, err = f.flow.VerifyByID(ctx, "")
	assert.ErrorIs(t, err, subscriptions.ErrNotFound)

	got, err := f.store.GetByUserID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFlow_VerifyIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, _, err := f.subs.Create(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		v, err := f.flow.VerifyByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, redemption.StateVerified, v.State)
		assert.Equal(t, 3, v.Subscription.DailyDrinksRemaining)
	}
	v, err := f.flow.VerifyByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, v.Subscription.ID)

	history, err := f.flow.History(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFlow_RedeemUnknownSubscription(t *testing.T) {
	f := newFixture(t)
	out, err := f.flow.Redeem(context.Background(), redemption.Request{SubscriptionID: "nope", RedeemedBy: "staff"})
	assert.ErrorIs(t, err, subscriptions.ErrNotFound)
	assert.Equal(t, redemption.StateNotFound, out.State)
}

func TestFlow_RedeemForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, _, err := f.subs.Create(ctx, "u1")
	require.NoError(t, err)

	out, err := f.flow.RedeemForUser(ctx, "u1", "", "barista")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, out.Subscription.ID)
	assert.Equal(t, "barista", out.Redemption.RedeemedBy)

	out, err = f.flow.RedeemForUser(ctx, "u2", "", "barista")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, redemption.StateNotFound, out.State)
}

func TestFlow_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, _, err := f.subs.Create(ctx, "u1")
	require.NoError(t, err)

	first, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, IdempotencyKey: " tap-1 ", RedeemedBy: "u1"})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	retry, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, IdempotencyKey: "tap-1", RedeemedBy: "u1"})
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, redemption.StateRedeemed, retry.State)
	assert.Equal(t, first.Redemption.ID, retry.Redemption.ID)
	assert.Equal(t, 2, retry.Subscription.DailyDrinksRemaining)

	// без ключа повтор: это новое погашение
	again, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, RedeemedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Subscription.DailyDrinksRemaining)

	_, err = f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, IdempotencyKey: strings.Repeat("k", 129), RedeemedBy: "u1"})
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))
}

func TestFlow_ResetRestoresRedeemability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, _, err := f.subs.Create(ctx, "u1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, RedeemedBy: "u1"})
		require.NoError(t, err)
	}

	f.clock.Advance(24*time.Hour + time.Second)
	n, err := f.subs.ResetDailyDrinks(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	out, err := f.flow.Redeem(ctx, redemption.Request{SubscriptionID: sub.ID, RedeemedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Subscription.DailyDrinksRemaining)
}
