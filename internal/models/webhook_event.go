package models

import "time"

// WebhookEvent 支付处理方事件日志（审计 + 幂等去重依据）
type WebhookEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                 // 主键
	ExternalEventID string    `gorm:"uniqueIndex;not null" json:"external_event_id"`        // 处理方事件ID
	EventType       string    `gorm:"type:varchar(64);index;not null" json:"event_type"`    // 事件类型
	OrderID         *uint     `gorm:"index" json:"order_id,omitempty"`                      // 关联订单ID（无法定位时为空）
	Payload         JSON      `gorm:"type:json" json:"payload,omitempty"`                   // 原始载荷
	Outcome         string    `gorm:"type:varchar(20);index;not null" json:"outcome"`       // 处理结果
	ReceivedAt      time.Time `gorm:"index" json:"received_at"`                             // 接收时间
}

// TableName 指定表名
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
