package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты погашения для метки result.
const (
	ResultRedeemed  = "redeemed"
	ResultReplayed  = "replayed"
	ResultExhausted = "quota_exhausted"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

var (
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coffee",
		Name:      "redemptions_total",
		Help:      "Redemption attempts by outcome.",
	}, []string{"result"})

	SubscriptionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coffee",
		Name:      "subscriptions_created_total",
		Help:      "Subscriptions created.",
	})

	QuotaResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coffee",
		Name:      "quota_resets_total",
		Help:      "Subscriptions whose daily quota was restored.",
	})

	ResetRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coffee",
		Name:      "reset_runs_total",
		Help:      "Reset worker ticks by outcome.",
	}, []string{"result"})
)
