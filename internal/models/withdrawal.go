package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal 提现申请（仅消费该推广人已结算的分佣余额）
type Withdrawal struct {
	ID           uint           `gorm:"primarykey" json:"id"`                          // 主键
	AffiliateID  uint           `gorm:"index;not null" json:"affiliate_id"`            // 申请推广人ID
	AmountCents  int64          `gorm:"not null" json:"amount_cents"`                  // 申请金额（最小货币单位）
	WalletID     string         `gorm:"type:varchar(64);not null" json:"wallet_id"`    // 收款钱包标识
	Status       string         `gorm:"type:varchar(20);index;not null" json:"status"` // 申请状态
	RejectReason string         `gorm:"type:varchar(255)" json:"reject_reason"`        // 驳回原因
	ProviderRef  string         `gorm:"type:varchar(128)" json:"provider_ref"`         // 处理方转账流水号
	ProcessedAt  *time.Time     `gorm:"index" json:"processed_at,omitempty"`           // 处理完成时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 申请推广人
}

// TableName 指定表名
func (Withdrawal) TableName() string {
	return "withdrawals"
}
