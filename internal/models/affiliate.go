package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广人档案（上级引用构成推广树，仅自上而下解析）
type Affiliate struct {
	ID        uint           `gorm:"primarykey" json:"id"`                          // 主键
	Code      string         `gorm:"uniqueIndex;not null" json:"code"`              // 推广码
	Name      string         `gorm:"type:varchar(120)" json:"name"`                 // 展示名称
	WalletID  string         `gorm:"type:varchar(64)" json:"wallet_id"`             // 收款钱包标识（配置前为空）
	SponsorID *uint          `gorm:"index" json:"sponsor_id,omitempty"`             // 上级推广人ID
	Status    string         `gorm:"type:varchar(20);index;not null" json:"status"` // 档案状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
