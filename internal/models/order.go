package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（结算完成后由订单协作方写入，状态仅由 Webhook 对账流转）
type Order struct {
	ID           uint           `gorm:"primarykey" json:"id"`                           // 主键
	OrderNo      string         `gorm:"uniqueIndex;not null" json:"order_no"`           // 订单编号（对外 externalReference）
	TotalCents   int64          `gorm:"not null" json:"total_cents"`                    // 订单金额（最小货币单位）
	Currency     string         `gorm:"type:varchar(8);not null" json:"currency"`       // 币种
	ReferralCode string         `gorm:"type:varchar(64);index" json:"referral_code"`    // 下单时携带的推广码
	Status       string         `gorm:"type:varchar(20);index;not null" json:"status"`  // 支付状态
	ProviderRef  string         `gorm:"type:varchar(128);index" json:"provider_ref"`    // 支付处理方流水号
	PaidAt       *time.Time     `gorm:"index" json:"paid_at"`                           // 确认支付时间
	CanceledAt   *time.Time     `gorm:"index" json:"canceled_at"`                       // 取消/退款时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                        // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间

	Commissions []CommissionRecord `gorm:"foreignKey:OrderID" json:"commissions,omitempty"` // 分佣台账
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
