package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionListFilter 查询分佣记录列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	OrderID     uint
	Role        string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter 查询提现申请列表的过滤条件
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WebhookEventListFilter 查询 Webhook 事件日志的过滤条件
type WebhookEventListFilter struct {
	Page      int
	PageSize  int
	EventType string
	Outcome   string
	OrderID   uint
}
