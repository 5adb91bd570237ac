package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRecord 分佣台账记录（每个订单恰好一组，创建后仅状态流转）
type CommissionRecord struct {
	ID          uint            `gorm:"primarykey" json:"id"`                                                            // 主键
	OrderID     uint            `gorm:"not null;index;index:idx_commission_order_role,unique" json:"order_id"`          // 订单ID
	AffiliateID *uint           `gorm:"index" json:"affiliate_id,omitempty"`                                            // 受益推广人ID（运营方份额为空）
	Role        string          `gorm:"type:varchar(20);not null;index:idx_commission_order_role,unique" json:"role"`   // 分佣角色
	WalletID    string          `gorm:"type:varchar(64)" json:"wallet_id"`                                              // 受益钱包标识
	RatePercent decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"rate_percent"`                       // 应用比例（百分比）
	ValueCents  int64           `gorm:"not null" json:"value_cents"`                                                    // 分佣金额（最小货币单位）
	Status      string          `gorm:"type:varchar(20);not null;index" json:"status"`                                  // 台账状态
	PaidAt      *time.Time      `gorm:"index" json:"paid_at,omitempty"`                                                 // 转已结算时间
	RejectNote  string          `gorm:"type:varchar(255)" json:"reject_note,omitempty"`                                 // 作废原因
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`                                                        // 创建时间
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`                                                        // 更新时间
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`                                                                 // 软删除时间

	Order     Order      `gorm:"foreignKey:OrderID" json:"order,omitempty"`         // 关联订单
	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 受益推广人
}

// TableName 指定表名
func (CommissionRecord) TableName() string {
	return "commission_records"
}
