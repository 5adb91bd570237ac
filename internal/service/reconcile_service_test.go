package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReconcileServiceTest(t *testing.T) (*ReconcileService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:reconcile_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.CommissionRecord{}, &models.WebhookEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewReconcileService(
		repository.NewOrderRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewWebhookEventRepository(db),
	)
	return svc, db
}

func createReconcileTestOrder(t *testing.T, db *gorm.DB, orderNo, status string) models.Order {
	t.Helper()

	order := models.Order{
		OrderNo:    orderNo,
		TotalCents: 329000,
		Currency:   constants.CurrencyDefault,
		Status:     status,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	records := []models.CommissionRecord{
		{OrderID: order.ID, Role: constants.CommissionRoleSeller, RatePercent: decimal.NewFromInt(15), ValueCents: 49350, Status: constants.CommissionStatusCalculated},
		{OrderID: order.ID, Role: constants.CommissionRoleOperatorA, RatePercent: decimal.NewFromFloat(7.5), ValueCents: 24675, Status: constants.CommissionStatusCalculated},
		{OrderID: order.ID, Role: constants.CommissionRoleOperatorB, RatePercent: decimal.NewFromFloat(7.5), ValueCents: 24675, Status: constants.CommissionStatusCalculated},
	}
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("create records failed: %v", err)
	}
	return order
}

func recordStatuses(t *testing.T, db *gorm.DB, orderID uint) map[string]int {
	t.Helper()

	var rows []models.CommissionRecord
	if err := db.Where("order_id = ?", orderID).Find(&rows).Error; err != nil {
		t.Fatalf("load records failed: %v", err)
	}
	statuses := map[string]int{}
	for _, row := range rows {
		statuses[row.Status]++
	}
	return statuses
}

func TestHandleEventConfirmSettlesCommissions(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0001", constants.OrderStatusPending)

	result, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_confirm_1",
		EventType:       asaaspay.EventPaymentConfirmed,
		OrderNo:         order.OrderNo,
	})
	if err != nil {
		t.Fatalf("handle event failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.Status)
	}
	if reloaded.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
	if statuses := recordStatuses(t, db, order.ID); statuses[constants.CommissionStatusPaid] != 3 {
		t.Fatalf("expected all records paid, got %+v", statuses)
	}
}

func TestHandleEventDuplicateHasNoSideEffects(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0002", constants.OrderStatusPending)

	input := WebhookEventInput{
		ExternalEventID: "evt_dup_1",
		EventType:       asaaspay.EventPaymentOverdue,
		OrderNo:         order.OrderNo,
	}
	first, err := svc.HandleEvent(input)
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if first.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", first.Outcome)
	}

	second, err := svc.HandleEvent(input)
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if second.Outcome != constants.WebhookOutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", second.Outcome)
	}

	var eventCount int64
	if err := db.Model(&models.WebhookEvent{}).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected single event row, got %d", eventCount)
	}
	if statuses := recordStatuses(t, db, order.ID); statuses[constants.CommissionStatusCalculated] != 3 {
		t.Fatalf("redelivery must not touch records, got %+v", statuses)
	}
}

func TestHandleEventTerminalStateIsSticky(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0003", constants.OrderStatusPending)

	if _, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_sticky_confirm",
		EventType:       asaaspay.EventPaymentConfirmed,
		OrderNo:         order.OrderNo,
	}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	result, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_sticky_delete",
		EventType:       asaaspay.EventPaymentDeleted,
		OrderNo:         order.OrderNo,
	})
	if err != nil {
		t.Fatalf("late delete failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("terminal state must stick, got %s", reloaded.Status)
	}
	if statuses := recordStatuses(t, db, order.ID); statuses[constants.CommissionStatusPaid] != 3 {
		t.Fatalf("settled records must stay paid, got %+v", statuses)
	}

	// 冲突事件仍要留痕
	seen, err := repository.NewWebhookEventRepository(db).GetByExternalID("evt_sticky_delete")
	if err != nil || seen == nil {
		t.Fatalf("expected conflict event logged, got %+v err=%v", seen, err)
	}
	if seen.Outcome != constants.WebhookOutcomeIgnored {
		t.Fatalf("expected ignored outcome logged, got %s", seen.Outcome)
	}
}

func TestHandleEventOverdueThenConfirmed(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0004", constants.OrderStatusPending)

	if _, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_late_overdue",
		EventType:       asaaspay.EventPaymentOverdue,
		OrderNo:         order.OrderNo,
	}); err != nil {
		t.Fatalf("overdue failed: %v", err)
	}

	result, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_late_confirm",
		EventType:       asaaspay.EventPaymentReceived,
		OrderNo:         order.OrderNo,
	})
	if err != nil {
		t.Fatalf("late confirm failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("late payment must confirm overdue order, got %s", result.Outcome)
	}
	if statuses := recordStatuses(t, db, order.ID); statuses[constants.CommissionStatusPaid] != 3 {
		t.Fatalf("expected all records paid, got %+v", statuses)
	}
}

func TestHandleEventRefundRejectsCommissions(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0005", constants.OrderStatusPending)

	result, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_refund_1",
		EventType:       asaaspay.EventPaymentRefunded,
		OrderNo:         order.OrderNo,
	})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusRefunded {
		t.Fatalf("expected refunded order, got %s", reloaded.Status)
	}
	if reloaded.CanceledAt == nil {
		t.Fatalf("expected canceled_at to be set")
	}
	if statuses := recordStatuses(t, db, order.ID); statuses[constants.CommissionStatusRejected] != 3 {
		t.Fatalf("expected all records rejected, got %+v", statuses)
	}
}

func TestHandleEventInformationalIsLoggedAndIgnored(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	order := createReconcileTestOrder(t, db, "ORD-RC-0006", constants.OrderStatusPending)

	result, err := svc.HandleEvent(WebhookEventInput{
		ExternalEventID: "evt_info_1",
		EventType:       asaaspay.EventPaymentCreated,
		OrderNo:         order.OrderNo,
	})
	if err != nil {
		t.Fatalf("informational event failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("informational event must not move order, got %s", reloaded.Status)
	}
}

func TestHandleEventUnknownOrderIsRetriable(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)

	input := WebhookEventInput{
		ExternalEventID: "evt_early_1",
		EventType:       asaaspay.EventPaymentConfirmed,
		OrderNo:         "ORD-RC-MISSING",
	}
	if _, err := svc.HandleEvent(input); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// 失败投递不留事件日志，订单补录后重投可以生效
	var eventCount int64
	if err := db.Model(&models.WebhookEvent{}).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("expected no event logged, got %d", eventCount)
	}

	createReconcileTestOrder(t, db, "ORD-RC-MISSING", constants.OrderStatusPending)
	result, err := svc.HandleEvent(input)
	if err != nil {
		t.Fatalf("redelivery after backfill failed: %v", err)
	}
	if result.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("expected applied after backfill, got %s", result.Outcome)
	}
}

func TestHandleEventRejectsMissingEventID(t *testing.T) {
	svc, _ := setupReconcileServiceTest(t)

	if _, err := svc.HandleEvent(WebhookEventInput{EventType: asaaspay.EventPaymentConfirmed}); !errors.Is(err, ErrEventIDRequired) {
		t.Fatalf("expected ErrEventIDRequired, got %v", err)
	}
}

func TestCancelStaleOverdue(t *testing.T) {
	svc, db := setupReconcileServiceTest(t)
	stale := createReconcileTestOrder(t, db, "ORD-RC-0007", constants.OrderStatusOverdue)
	fresh := createReconcileTestOrder(t, db, "ORD-RC-0008", constants.OrderStatusOverdue)

	old := time.Now().Add(-96 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", stale.ID).UpdateColumn("updated_at", old).Error; err != nil {
		t.Fatalf("backdate order failed: %v", err)
	}

	canceled, err := svc.CancelStaleOverdue(time.Now().Add(-72*time.Hour), 100)
	if err != nil {
		t.Fatalf("cancel stale overdue failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled order, got %d", canceled)
	}

	var reloadedStale, reloadedFresh models.Order
	if err := db.First(&reloadedStale, stale.ID).Error; err != nil {
		t.Fatalf("reload stale order failed: %v", err)
	}
	if err := db.First(&reloadedFresh, fresh.ID).Error; err != nil {
		t.Fatalf("reload fresh order failed: %v", err)
	}
	if reloadedStale.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected stale order cancelled, got %s", reloadedStale.Status)
	}
	if reloadedFresh.Status != constants.OrderStatusOverdue {
		t.Fatalf("fresh overdue order must stay, got %s", reloadedFresh.Status)
	}
	if statuses := recordStatuses(t, db, stale.ID); statuses[constants.CommissionStatusRejected] != 3 {
		t.Fatalf("expected stale records rejected, got %+v", statuses)
	}
}
