package service

import (
	"strings"

	"github.com/revenda-next/internal/config"
	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/metrics"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单接入与分佣落库服务。
// 本服务是 calculated 状态台账记录的唯一写入方。
type OrderService struct {
	orderRepo      repository.OrderRepository
	commissionRepo repository.CommissionRepository
	affiliateRepo  repository.AffiliateRepository
	network        *NetworkService
	rateTable      RateTable
	commissionCfg  config.CommissionConfig
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	commissionRepo repository.CommissionRepository,
	affiliateRepo repository.AffiliateRepository,
	network *NetworkService,
	rateTable RateTable,
	commissionCfg config.CommissionConfig,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
		affiliateRepo:  affiliateRepo,
		network:        network,
		rateTable:      rateTable,
		commissionCfg:  commissionCfg,
	}
}

// RegisterOrderInput 结算完成订单的接入参数
type RegisterOrderInput struct {
	OrderNo      string
	TotalCents   int64
	Currency     string
	ReferralCode string
	ProviderRef  string
}

// RegisterOrder 接收结算完成的订单，解析推广链并在单个事务内落库订单与分佣台账。
// 同一订单重复提交是安全空操作：锁内先查已有记录集，存在即跳过写入。
func (s *OrderService) RegisterOrder(input RegisterOrderInput) (*models.Order, error) {
	orderNo := strings.TrimSpace(input.OrderNo)
	if orderNo == "" {
		return nil, ErrOrderNoRequired
	}
	if input.TotalCents <= 0 {
		return nil, ErrOrderValueInvalid
	}
	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = constants.CurrencyDefault
	}

	chain, err := s.network.ResolveChain(input.ReferralCode)
	if err != nil {
		return nil, err
	}
	splits, err := CalculateSplits(s.rateTable, input.TotalCents, chain)
	if err != nil {
		return nil, err
	}
	// 落库前复核合计不变量，不一致绝不持久化
	if err := VerifySplitTotal(s.rateTable, input.TotalCents, splits); err != nil {
		metrics.InvariantFailuresTotal.Inc()
		logger.Errorw("commission_split_invariant_violation",
			"order_no", orderNo,
			"total_cents", input.TotalCents,
			"error", err,
		)
		return nil, err
	}

	records, err := s.buildRecords(splits)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	skipped := false
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepoTx := s.orderRepo.WithTx(tx)
		commissionRepoTx := s.commissionRepo.WithTx(tx)

		existing, err := orderRepoTx.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if existing != nil {
			// 锁内显式检查已有记录集，而不是依赖唯一约束兜底
			exists, err := commissionRepoTx.ExistsByOrder(existing.ID)
			if err != nil {
				return err
			}
			if exists {
				order = existing
				skipped = true
				return nil
			}
			order = existing
		} else {
			created := &models.Order{
				OrderNo:      orderNo,
				TotalCents:   input.TotalCents,
				Currency:     currency,
				ReferralCode: strings.TrimSpace(input.ReferralCode),
				Status:       constants.OrderStatusPending,
				ProviderRef:  strings.TrimSpace(input.ProviderRef),
			}
			if err := orderRepoTx.Create(created); err != nil {
				return err
			}
			order = created
		}

		for i := range records {
			records[i].OrderID = order.ID
		}
		return commissionRepoTx.CreateBatch(records)
	})
	if err != nil {
		return nil, err
	}

	if skipped {
		logger.Warnw("commission_split_write_skipped_existing",
			"order_no", orderNo,
			"order_id", order.ID,
		)
		return order, nil
	}

	metrics.SplitsTotal.Inc()
	logger.Infow("commission_splits_persisted",
		"order_no", orderNo,
		"order_id", order.ID,
		"total_cents", input.TotalCents,
		"split_count", len(records),
	)
	return order, nil
}

// buildRecords 将计算结果转换为台账记录，补齐受益钱包标识
func (s *OrderService) buildRecords(splits []CommissionSplit) ([]models.CommissionRecord, error) {
	records := make([]models.CommissionRecord, 0, len(splits))
	for _, split := range splits {
		record := models.CommissionRecord{
			AffiliateID: split.AffiliateID,
			Role:        split.Role,
			RatePercent: split.RatePercent,
			ValueCents:  split.ValueCents,
			Status:      constants.CommissionStatusCalculated,
		}
		switch split.Role {
		case constants.CommissionRoleOperatorA:
			record.WalletID = strings.TrimSpace(s.commissionCfg.OperatorAWalletID)
		case constants.CommissionRoleOperatorB:
			record.WalletID = strings.TrimSpace(s.commissionCfg.OperatorBWalletID)
		default:
			if split.AffiliateID != nil {
				affiliate, err := s.affiliateRepo.GetByID(*split.AffiliateID)
				if err != nil {
					return nil, err
				}
				if affiliate != nil {
					record.WalletID = strings.TrimSpace(affiliate.WalletID)
				}
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// GetOrderByOrderNo 按订单编号查询订单
func (s *OrderService) GetOrderByOrderNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrderCommissions 查询订单的分佣台账
func (s *OrderService) ListOrderCommissions(orderNo string) (*models.Order, []models.CommissionRecord, error) {
	order, err := s.GetOrderByOrderNo(orderNo)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.commissionRepo.ListByOrder(order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, rows, nil
}

// ListAffiliateCommissions 查询推广人的分佣记录
func (s *OrderService) ListAffiliateCommissions(affiliateID uint, page, pageSize int, status string) ([]models.CommissionRecord, int64, error) {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, 0, err
	}
	if affiliate == nil {
		return nil, 0, ErrAffiliateNotFound
	}
	return s.commissionRepo.List(repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: affiliateID,
		Status:      strings.TrimSpace(status),
	})
}
