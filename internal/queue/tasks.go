package queue

import (
	"encoding/json"

	"github.com/revenda-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskWithdrawPayout 提现打款执行任务
	TaskWithdrawPayout = constants.TaskWithdrawPayout
)

// WithdrawPayoutPayload 提现打款任务载荷
type WithdrawPayoutPayload struct {
	WithdrawalID uint `json:"withdrawal_id"`
}

// NewWithdrawPayoutTask 创建提现打款任务
func NewWithdrawPayoutTask(payload WithdrawPayoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWithdrawPayout, body), nil
}
