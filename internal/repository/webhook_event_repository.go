package repository

import (
	"errors"
	"strings"

	"github.com/revenda-next/internal/models"

	"gorm.io/gorm"
)

// WebhookEventRepository Webhook 事件日志数据访问接口
type WebhookEventRepository interface {
	WithTx(tx *gorm.DB) WebhookEventRepository

	Create(event *models.WebhookEvent) error
	GetByExternalID(externalEventID string) (*models.WebhookEvent, error)
	List(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error)
}

// GormWebhookEventRepository GORM Webhook 事件仓储
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository 创建 Webhook 事件仓储
func NewWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWebhookEventRepository) WithTx(tx *gorm.DB) WebhookEventRepository {
	if tx == nil {
		return r
	}
	return &GormWebhookEventRepository{db: tx}
}

// Create 写入事件日志
func (r *GormWebhookEventRepository) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// GetByExternalID 按处理方事件ID查询日志
func (r *GormWebhookEventRepository) GetByExternalID(externalEventID string) (*models.WebhookEvent, error) {
	normalized := strings.TrimSpace(externalEventID)
	if normalized == "" {
		return nil, nil
	}
	var event models.WebhookEvent
	if err := r.db.Where("external_event_id = ?", normalized).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// List 查询事件日志列表
func (r *GormWebhookEventRepository) List(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	query := r.db.Model(&models.WebhookEvent{})
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if outcome := strings.TrimSpace(filter.Outcome); outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.WebhookEvent
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
