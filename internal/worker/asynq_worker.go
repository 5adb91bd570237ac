package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/provider"
	"github.com/revenda-next/internal/queue"
	"github.com/revenda-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(constants.TaskWithdrawPayout, c.handleWithdrawPayout)
}

func (c *Consumer) handleWithdrawPayout(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_withdraw_payout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WithdrawPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_withdraw_payout_unmarshal_failed", "error", err)
		return err
	}
	if payload.WithdrawalID == 0 {
		logger.Debugw("worker_withdraw_payout_skip_invalid_payload", "withdrawal_id", payload.WithdrawalID)
		return nil
	}
	if c.WithdrawService == nil {
		logger.Warnw("worker_withdraw_payout_skip_service_nil", "withdrawal_id", payload.WithdrawalID)
		return nil
	}
	if err := c.WithdrawService.ExecutePayout(ctx, payload.WithdrawalID); err != nil {
		switch {
		case errors.Is(err, service.ErrWithdrawNotFound):
			logger.Debugw("worker_withdraw_payout_skip_not_found", "withdrawal_id", payload.WithdrawalID)
			return nil
		case errors.Is(err, service.ErrWithdrawStatusInvalid):
			logger.Debugw("worker_withdraw_payout_skip_invalid_status", "withdrawal_id", payload.WithdrawalID)
			return nil
		case errors.Is(err, service.ErrGatewayUnavailable):
			// 交给队列按退避策略重试
			logger.Warnw("worker_withdraw_payout_gateway_unavailable", "withdrawal_id", payload.WithdrawalID, "error", err)
			return err
		default:
			logger.Warnw("worker_withdraw_payout_failed", "withdrawal_id", payload.WithdrawalID, "error", err)
			return err
		}
	}
	return nil
}
