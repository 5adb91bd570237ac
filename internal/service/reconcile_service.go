package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/metrics"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/repository"

	"gorm.io/gorm"
)

// ReconcileService 支付 Webhook 对账服务。
// 以事件日志为去重依据保证至多一次生效，状态流转与台账级联在同一事务内完成。
type ReconcileService struct {
	orderRepo      repository.OrderRepository
	commissionRepo repository.CommissionRepository
	eventRepo      repository.WebhookEventRepository
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	orderRepo repository.OrderRepository,
	commissionRepo repository.CommissionRepository,
	eventRepo repository.WebhookEventRepository,
) *ReconcileService {
	return &ReconcileService{
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
		eventRepo:      eventRepo,
	}
}

// WebhookEventInput 入站事件的处理参数
type WebhookEventInput struct {
	ExternalEventID string
	EventType       string
	OrderNo         string
	Payload         models.JSON
}

// ReconcileResult 事件处理结果
type ReconcileResult struct {
	Outcome     string
	OrderStatus string
}

// mapEventToStatus 将处理方事件类型映射为目标订单状态。
// 返回空串表示信息类或未知事件，不驱动状态流转。
func mapEventToStatus(eventType string) string {
	switch eventType {
	case asaaspay.EventPaymentConfirmed, asaaspay.EventPaymentReceived:
		return constants.OrderStatusConfirmed
	case asaaspay.EventPaymentOverdue:
		return constants.OrderStatusOverdue
	case asaaspay.EventPaymentDeleted:
		return constants.OrderStatusCancelled
	case asaaspay.EventPaymentRefunded:
		return constants.OrderStatusRefunded
	default:
		return ""
	}
}

// HandleEvent 处理单条 Webhook 事件。
// 重复事件编号直接确认且零副作用；终态冲突记录日志后忽略；
// 定位不到订单的状态事件返回 ErrOrderNotFound，留给处理方重投。
func (s *ReconcileService) HandleEvent(input WebhookEventInput) (*ReconcileResult, error) {
	eventID := strings.TrimSpace(input.ExternalEventID)
	if eventID == "" {
		return nil, ErrEventIDRequired
	}
	eventType := strings.TrimSpace(input.EventType)
	if eventType == "" {
		return nil, ErrEventPayloadInvalid
	}

	// 事务外快速路径：绝大多数重投在此被拦截
	seen, err := s.eventRepo.GetByExternalID(eventID)
	if err != nil {
		return nil, err
	}
	if seen != nil {
		metrics.WebhookEventsTotal.WithLabelValues(constants.WebhookOutcomeDuplicate).Inc()
		logger.Infow("webhook_event_duplicate",
			"external_event_id", eventID,
			"event_type", eventType,
		)
		return &ReconcileResult{Outcome: constants.WebhookOutcomeDuplicate}, nil
	}

	targetStatus := mapEventToStatus(eventType)
	result := &ReconcileResult{}
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepoTx := s.orderRepo.WithTx(tx)
		commissionRepoTx := s.commissionRepo.WithTx(tx)
		eventRepoTx := s.eventRepo.WithTx(tx)

		// 锁内复查，并发重投只允许一个写入者通过
		seen, err := eventRepoTx.GetByExternalID(eventID)
		if err != nil {
			return err
		}
		if seen != nil {
			result.Outcome = constants.WebhookOutcomeDuplicate
			return nil
		}

		record := &models.WebhookEvent{
			ExternalEventID: eventID,
			EventType:       eventType,
			Payload:         input.Payload,
			ReceivedAt:      time.Now(),
		}

		if targetStatus == "" {
			// 信息类/未知事件：只留痕，不碰订单
			order, err := orderRepoTx.GetByOrderNo(input.OrderNo)
			if err != nil {
				return err
			}
			if order != nil {
				record.OrderID = &order.ID
				result.OrderStatus = order.Status
			}
			record.Outcome = constants.WebhookOutcomeIgnored
			result.Outcome = constants.WebhookOutcomeIgnored
			return eventRepoTx.Create(record)
		}

		order, err := orderRepoTx.GetByOrderNoForUpdate(input.OrderNo)
		if err != nil {
			return err
		}
		if order == nil {
			// 不落事件日志，订单补录后处理方重投仍可生效
			return fmt.Errorf("%w: order_no %q", ErrOrderNotFound, strings.TrimSpace(input.OrderNo))
		}
		record.OrderID = &order.ID

		if order.Status == targetStatus || !IsOrderTransitionAllowed(order.Status, targetStatus) {
			logger.Warnw("webhook_event_transition_ignored",
				"external_event_id", eventID,
				"event_type", eventType,
				"order_no", order.OrderNo,
				"order_status", order.Status,
				"target_status", targetStatus,
			)
			record.Outcome = constants.WebhookOutcomeIgnored
			result.Outcome = constants.WebhookOutcomeIgnored
			result.OrderStatus = order.Status
			return eventRepoTx.Create(record)
		}

		now := time.Now()
		updates := map[string]interface{}{}
		switch targetStatus {
		case constants.OrderStatusConfirmed:
			updates["paid_at"] = now
		case constants.OrderStatusCancelled, constants.OrderStatusRefunded:
			updates["canceled_at"] = now
		}
		if err := orderRepoTx.UpdateStatus(order.ID, targetStatus, updates); err != nil {
			return err
		}

		// 订单状态与台账级联在同一事务内保持一致
		switch targetStatus {
		case constants.OrderStatusConfirmed:
			affected, err := commissionRepoTx.MarkPaidByOrder(order.ID, now)
			if err != nil {
				return err
			}
			logger.Infow("commission_records_settled",
				"order_no", order.OrderNo,
				"affected", affected,
			)
		case constants.OrderStatusCancelled, constants.OrderStatusRefunded:
			note := "order " + targetStatus
			affected, err := commissionRepoTx.MarkRejectedByOrder(order.ID, note, now)
			if err != nil {
				return err
			}
			logger.Infow("commission_records_rejected",
				"order_no", order.OrderNo,
				"reason", note,
				"affected", affected,
			)
		}

		record.Outcome = constants.WebhookOutcomeApplied
		result.Outcome = constants.WebhookOutcomeApplied
		result.OrderStatus = targetStatus
		return eventRepoTx.Create(record)
	})
	if err != nil {
		return nil, err
	}

	metrics.WebhookEventsTotal.WithLabelValues(result.Outcome).Inc()
	logger.Infow("webhook_event_processed",
		"external_event_id", eventID,
		"event_type", eventType,
		"order_no", strings.TrimSpace(input.OrderNo),
		"outcome", result.Outcome,
		"order_status", result.OrderStatus,
	)
	return result, nil
}

// CancelStaleOverdue 将逾期超过保留时限仍未支付的订单取消并作废台账，返回处理数量。
// 由后台巡检周期性调用，每单独立事务，单单失败不影响整批。
func (s *ReconcileService) CancelStaleOverdue(cutoff time.Time, limit int) (int, error) {
	orders, err := s.orderRepo.ListOverdueBefore(cutoff, limit)
	if err != nil {
		return 0, err
	}

	canceled := 0
	for _, candidate := range orders {
		orderNo := candidate.OrderNo
		err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
			orderRepoTx := s.orderRepo.WithTx(tx)
			commissionRepoTx := s.commissionRepo.WithTx(tx)

			order, err := orderRepoTx.GetByOrderNoForUpdate(orderNo)
			if err != nil {
				return err
			}
			if order == nil || order.Status != constants.OrderStatusOverdue {
				// 巡检与 Webhook 竞争时以先到者为准
				return nil
			}

			now := time.Now()
			if err := orderRepoTx.UpdateStatus(order.ID, constants.OrderStatusCancelled, map[string]interface{}{
				"canceled_at": now,
			}); err != nil {
				return err
			}
			if _, err := commissionRepoTx.MarkRejectedByOrder(order.ID, "overdue timeout", now); err != nil {
				return err
			}
			canceled++
			return nil
		})
		if err != nil {
			logger.Errorw("overdue_sweep_cancel_failed",
				"order_no", orderNo,
				"error", err,
			)
			continue
		}
	}

	if canceled > 0 {
		logger.Infow("overdue_sweep_completed",
			"scanned", len(orders),
			"canceled", canceled,
		)
	}
	return canceled, nil
}

// ListEvents 查询事件日志
func (s *ReconcileService) ListEvents(filter repository.WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	return s.eventRepo.List(filter)
}
