package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal 按处理结果统计入站 Webhook 事件
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_webhook_events_total",
			Help: "Total number of inbound payment webhook events by outcome.",
		},
		[]string{"outcome"},
	)

	// SplitsTotal 统计已落库的分佣组数
	SplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commission_splits_total",
			Help: "Total number of commission split sets persisted.",
		},
	)

	// InvariantFailuresTotal 统计合计不变量校验失败次数
	InvariantFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commission_invariant_failures_total",
			Help: "Total number of commission split sum invariant violations.",
		},
	)

	// PayoutsTotal 按结果统计提现打款执行次数
	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_payouts_total",
			Help: "Total number of withdrawal payout executions by result.",
		},
		[]string{"result"},
	)
)
