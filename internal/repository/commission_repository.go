package repository

import (
	"strings"
	"time"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 分佣台账数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateBatch(records []models.CommissionRecord) error
	ExistsByOrder(orderID uint) (bool, error)
	ListByOrder(orderID uint) ([]models.CommissionRecord, error)
	ListByOrderForUpdate(orderID uint) ([]models.CommissionRecord, error)
	MarkPaidByOrder(orderID uint, paidAt time.Time) (int64, error)
	MarkRejectedByOrder(orderID uint, note string, now time.Time) (int64, error)
	SumByAffiliate(affiliateID uint, statuses []string) (int64, error)
	List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error)
}

// GormCommissionRepository GORM 分佣台账仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建分佣台账仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateBatch 批量创建分佣记录
func (r *GormCommissionRepository) CreateBatch(records []models.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// ExistsByOrder 判断订单是否已存在分佣记录
func (r *GormCommissionRepository) ExistsByOrder(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.CommissionRecord{}).
		Where("order_id = ?", orderID).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// ListByOrder 按订单查询分佣记录
func (r *GormCommissionRepository) ListByOrder(orderID uint) ([]models.CommissionRecord, error) {
	if orderID == 0 {
		return []models.CommissionRecord{}, nil
	}
	var rows []models.CommissionRecord
	if err := r.db.Where("order_id = ?", orderID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOrderForUpdate 按订单查询分佣记录并加锁
func (r *GormCommissionRepository) ListByOrderForUpdate(orderID uint) ([]models.CommissionRecord, error) {
	if orderID == 0 {
		return []models.CommissionRecord{}, nil
	}
	var rows []models.CommissionRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaidByOrder 将订单下待结算分佣记录转为已结算
func (r *GormCommissionRepository) MarkPaidByOrder(orderID uint, paidAt time.Time) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("order_id = ? AND status = ?", orderID, constants.CommissionStatusCalculated).
		Updates(map[string]interface{}{
			"status":     constants.CommissionStatusPaid,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkRejectedByOrder 将订单下待结算分佣记录作废
func (r *GormCommissionRepository) MarkRejectedByOrder(orderID uint, note string, now time.Time) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionRecord{}).
		Where("order_id = ? AND status = ?", orderID, constants.CommissionStatusCalculated).
		Updates(map[string]interface{}{
			"status":      constants.CommissionStatusRejected,
			"reject_note": strings.TrimSpace(note),
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByAffiliate 汇总推广人指定状态的分佣金额
func (r *GormCommissionRepository) SumByAffiliate(affiliateID uint, statuses []string) (int64, error) {
	if affiliateID == 0 || len(statuses) == 0 {
		return 0, nil
	}
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.CommissionRecord{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID, statuses).
		Select("COALESCE(SUM(value_cents), 0) AS total").
		Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.Total, nil
}

// List 查询分佣记录列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	query := r.db.Model(&models.CommissionRecord{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.CommissionRecord
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
