package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/metrics"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/queue"
	"github.com/revenda-next/internal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// 打款任务的队列重试上限
const payoutMaxRetry = 5

// WithdrawService 提现申请与打款执行服务
type WithdrawService struct {
	affiliateRepo    repository.AffiliateRepository
	commissionRepo   repository.CommissionRepository
	withdrawalRepo   repository.WithdrawalRepository
	walletSvc        *WalletService
	queueClient      *queue.Client
	gatewayCfg       *asaaspay.Config
	minWithdrawCents int64
}

// NewWithdrawService 创建提现服务
func NewWithdrawService(
	affiliateRepo repository.AffiliateRepository,
	commissionRepo repository.CommissionRepository,
	withdrawalRepo repository.WithdrawalRepository,
	walletSvc *WalletService,
	queueClient *queue.Client,
	gatewayCfg *asaaspay.Config,
	minWithdrawCents int64,
) *WithdrawService {
	return &WithdrawService{
		affiliateRepo:    affiliateRepo,
		commissionRepo:   commissionRepo,
		withdrawalRepo:   withdrawalRepo,
		walletSvc:        walletSvc,
		queueClient:      queueClient,
		gatewayCfg:       gatewayCfg,
		minWithdrawCents: minWithdrawCents,
	}
}

// AvailableBalance 计算推广人可提现余额：已结算分佣合计减去未驳回提现合计
func (s *WithdrawService) AvailableBalance(affiliateID uint) (int64, error) {
	paid, err := s.commissionRepo.SumByAffiliate(affiliateID, []string{constants.CommissionStatusPaid})
	if err != nil {
		return 0, err
	}
	reserved, err := s.withdrawalRepo.SumActiveByAffiliate(affiliateID)
	if err != nil {
		return 0, err
	}
	return paid - reserved, nil
}

// RequestWithdrawInput 提现申请参数
type RequestWithdrawInput struct {
	AffiliateID uint
	AmountCents int64
	WalletID    string // 为空时使用档案钱包
}

// RequestWithdraw 受理提现申请。余额校验与申请落库在推广人行锁内完成，
// 并发申请不会超出可提现余额。成功后异步派发打款任务。
func (s *WithdrawService) RequestWithdraw(input RequestWithdrawInput) (*models.Withdrawal, error) {
	if input.AmountCents <= 0 {
		return nil, ErrWithdrawAmountInvalid
	}
	if input.AmountCents < s.minWithdrawCents {
		return nil, fmt.Errorf("%w: minimum %d", ErrWithdrawBelowMinimum, s.minWithdrawCents)
	}

	var withdrawal *models.Withdrawal
	err := s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepoTx := s.affiliateRepo.WithTx(tx)
		commissionRepoTx := s.commissionRepo.WithTx(tx)
		withdrawalRepoTx := s.withdrawalRepo.WithTx(tx)

		affiliate, err := affiliateRepoTx.GetByIDForUpdate(input.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrAffiliateNotFound
		}
		if affiliate.Status != constants.AffiliateStatusActive {
			return ErrAffiliateInactive
		}

		walletID := strings.TrimSpace(input.WalletID)
		if walletID == "" {
			walletID = strings.TrimSpace(affiliate.WalletID)
		}
		if walletID == "" {
			return ErrWithdrawWalletRequired
		}
		if uuid.Validate(walletID) != nil {
			return fmt.Errorf("%w: %q", ErrWalletFormatInvalid, walletID)
		}

		paid, err := commissionRepoTx.SumByAffiliate(affiliate.ID, []string{constants.CommissionStatusPaid})
		if err != nil {
			return err
		}
		reserved, err := withdrawalRepoTx.SumActiveByAffiliate(affiliate.ID)
		if err != nil {
			return err
		}
		if available := paid - reserved; input.AmountCents > available {
			return fmt.Errorf("%w: requested %d, available %d", ErrWithdrawInsufficient, input.AmountCents, available)
		}

		withdrawal = &models.Withdrawal{
			AffiliateID: affiliate.ID,
			AmountCents: input.AmountCents,
			WalletID:    walletID,
			Status:      constants.WithdrawalStatusPending,
		}
		return withdrawalRepoTx.Create(withdrawal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_requested",
		"withdrawal_id", withdrawal.ID,
		"affiliate_id", withdrawal.AffiliateID,
		"amount_cents", withdrawal.AmountCents,
	)

	if err := s.queueClient.EnqueueWithdrawPayout(
		queue.WithdrawPayoutPayload{WithdrawalID: withdrawal.ID},
		asynq.MaxRetry(payoutMaxRetry),
	); err != nil {
		// 申请已受理，打款任务可由巡检或人工补发
		logger.Errorw("withdrawal_payout_enqueue_failed",
			"withdrawal_id", withdrawal.ID,
			"error", err,
		)
	}
	return withdrawal, nil
}

// ExecutePayout 执行单笔打款。锁内将申请置为 processing 后在事务外调用网关，
// 网关不可用返回错误交给队列按退避重试；钱包问题与明确拒绝转为驳回终态。
func (s *WithdrawService) ExecutePayout(ctx context.Context, withdrawalID uint) error {
	var pending *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepoTx := s.withdrawalRepo.WithTx(tx)
		row, err := withdrawalRepoTx.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%w: id %d", ErrWithdrawNotFound, withdrawalID)
		}
		switch row.Status {
		case constants.WithdrawalStatusCompleted, constants.WithdrawalStatusRejected:
			// 任务重投打到已终态的申请，幂等跳过
			return nil
		case constants.WithdrawalStatusPending, constants.WithdrawalStatusProcessing:
			row.Status = constants.WithdrawalStatusProcessing
			if err := withdrawalRepoTx.Update(row); err != nil {
				return err
			}
			pending = row
			return nil
		default:
			return fmt.Errorf("%w: id %d status %s", ErrWithdrawStatusInvalid, withdrawalID, row.Status)
		}
	})
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	if _, err := s.walletSvc.ValidateWallet(ctx, pending.WalletID); err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return err
		}
		return s.finalizeRejected(pending, err.Error())
	}

	transfer, err := asaaspay.CreateTransfer(ctx, s.gatewayCfg, asaaspay.TransferInput{
		WalletID:          pending.WalletID,
		AmountCents:       pending.AmountCents,
		ExternalReference: fmt.Sprintf("withdrawal-%d", pending.ID),
		Description:       "affiliate commission withdrawal",
	})
	if err != nil {
		if errors.Is(err, asaaspay.ErrTransferRejected) {
			return s.finalizeRejected(pending, err.Error())
		}
		logger.Warnw("withdrawal_payout_gateway_error",
			"withdrawal_id", pending.ID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	now := time.Now()
	err = s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepoTx := s.withdrawalRepo.WithTx(tx)
		row, err := withdrawalRepoTx.GetByIDForUpdate(pending.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%w: id %d", ErrWithdrawNotFound, pending.ID)
		}
		row.Status = constants.WithdrawalStatusCompleted
		row.ProviderRef = transfer.ID
		row.ProcessedAt = &now
		return withdrawalRepoTx.Update(row)
	})
	if err != nil {
		return err
	}

	metrics.PayoutsTotal.WithLabelValues(constants.WithdrawalStatusCompleted).Inc()
	logger.Infow("withdrawal_payout_completed",
		"withdrawal_id", pending.ID,
		"affiliate_id", pending.AffiliateID,
		"amount_cents", pending.AmountCents,
		"provider_ref", transfer.ID,
	)
	return nil
}

// finalizeRejected 将申请转为驳回终态，占用的余额随之释放
func (s *WithdrawService) finalizeRejected(pending *models.Withdrawal, reason string) error {
	now := time.Now()
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepoTx := s.withdrawalRepo.WithTx(tx)
		row, err := withdrawalRepoTx.GetByIDForUpdate(pending.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%w: id %d", ErrWithdrawNotFound, pending.ID)
		}
		row.Status = constants.WithdrawalStatusRejected
		row.RejectReason = strings.TrimSpace(reason)
		row.ProcessedAt = &now
		return withdrawalRepoTx.Update(row)
	})
	if err != nil {
		return err
	}

	metrics.PayoutsTotal.WithLabelValues(constants.WithdrawalStatusRejected).Inc()
	logger.Warnw("withdrawal_payout_rejected",
		"withdrawal_id", pending.ID,
		"affiliate_id", pending.AffiliateID,
		"reason", reason,
	)
	return nil
}

// GetWithdrawal 查询单笔提现申请
func (s *WithdrawService) GetWithdrawal(id uint) (*models.Withdrawal, error) {
	row, err := s.withdrawalRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrWithdrawNotFound
	}
	return row, nil
}

// ListWithdrawals 查询提现申请列表
func (s *WithdrawService) ListWithdrawals(filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	return s.withdrawalRepo.List(filter)
}
