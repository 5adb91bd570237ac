package constants

// 订单支付状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusOverdue   = "overdue"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// 分佣角色常量
const (
	CommissionRoleSeller    = "seller"
	CommissionRoleLevelOne  = "n1"
	CommissionRoleLevelTwo  = "n2"
	CommissionRoleOperatorA = "operator_a"
	CommissionRoleOperatorB = "operator_b"
)

// 分佣记录状态常量
const (
	CommissionStatusCalculated = "calculated"
	CommissionStatusPaid       = "paid"
	CommissionStatusRejected   = "rejected"
)

// 推广人状态常量
const (
	AffiliateStatusPending   = "pending"
	AffiliateStatusActive    = "active"
	AffiliateStatusSuspended = "suspended"
	AffiliateStatusInactive  = "inactive"
)

// 提现申请状态常量
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Webhook 事件处理结果常量
const (
	WebhookOutcomeApplied   = "applied"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeIgnored   = "ignored"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskWithdrawPayout = "commission:withdraw_payout"
)

// 默认币种
const (
	CurrencyDefault = "BRL"
)
