package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revenda-next/internal/config"
	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/provider"
	"github.com/revenda-next/internal/repository"
	"github.com/revenda-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testWebhookToken = "hook-secret-1"

func setupWebhookHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhook_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.CommissionRecord{}, &models.WebhookEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Gateway.WebhookToken = testWebhookToken

	container := &provider.Container{
		Config: cfg,
		ReconcileService: service.NewReconcileService(
			repository.NewOrderRepository(db),
			repository.NewCommissionRepository(db),
			repository.NewWebhookEventRepository(db),
		),
	}
	return New(container), db
}

func createWebhookHandlerOrder(t *testing.T, db *gorm.DB, orderNo string) models.Order {
	t.Helper()

	order := models.Order{
		OrderNo:    orderNo,
		TotalCents: 20000,
		Currency:   constants.CurrencyDefault,
		Status:     constants.OrderStatusPending,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	record := models.CommissionRecord{
		OrderID:     order.ID,
		Role:        constants.CommissionRoleSeller,
		RatePercent: decimal.NewFromInt(15),
		ValueCents:  3000,
		Status:      constants.CommissionStatusCalculated,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	return order
}

func postWebhook(t *testing.T, h *Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("asaas-access-token", token)
	}
	c.Request = req
	h.PaymentWebhook(c)
	return w
}

type webhookEnvelope struct {
	StatusCode int `json:"status_code"`
	Data       struct {
		Accepted    bool   `json:"accepted"`
		Outcome     string `json:"outcome"`
		OrderStatus string `json:"order_status"`
	} `json:"data"`
}

func decodeWebhookEnvelope(t *testing.T, w *httptest.ResponseRecorder) webhookEnvelope {
	t.Helper()

	var resp webhookEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp
}

func confirmEventBody(eventID, orderNo string) string {
	return fmt.Sprintf(`{"id":%q,"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","status":"CONFIRMED","externalReference":%q}}`, eventID, orderNo)
}

func TestPaymentWebhookConfirmApplies(t *testing.T) {
	h, db := setupWebhookHandlerTest(t)
	order := createWebhookHandlerOrder(t, db, "ORD-WH-0001")

	w := postWebhook(t, h, testWebhookToken, confirmEventBody("evt_wh_1", order.OrderNo))
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	resp := decodeWebhookEnvelope(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d", resp.StatusCode)
	}
	if !resp.Data.Accepted || resp.Data.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("unexpected result %+v", resp.Data)
	}
	if resp.Data.OrderStatus != constants.OrderStatusConfirmed {
		t.Fatalf("order_status want confirmed got %s", resp.Data.OrderStatus)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.Status)
	}

	// 事件载荷要留在日志里
	var event models.WebhookEvent
	if err := db.Where("external_event_id = ?", "evt_wh_1").First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.Payload["event"] != "PAYMENT_CONFIRMED" {
		t.Fatalf("expected raw payload stored, got %+v", event.Payload)
	}
}

func TestPaymentWebhookRedeliveryIsDuplicate(t *testing.T) {
	h, db := setupWebhookHandlerTest(t)
	order := createWebhookHandlerOrder(t, db, "ORD-WH-0002")

	body := confirmEventBody("evt_wh_2", order.OrderNo)
	if resp := decodeWebhookEnvelope(t, postWebhook(t, h, testWebhookToken, body)); resp.Data.Outcome != constants.WebhookOutcomeApplied {
		t.Fatalf("first delivery want applied got %s", resp.Data.Outcome)
	}
	resp := decodeWebhookEnvelope(t, postWebhook(t, h, testWebhookToken, body))
	if resp.StatusCode != 0 || resp.Data.Outcome != constants.WebhookOutcomeDuplicate {
		t.Fatalf("redelivery want duplicate got %+v", resp)
	}
}

func TestPaymentWebhookUnknownOrderKeeps200(t *testing.T) {
	h, _ := setupWebhookHandlerTest(t)

	w := postWebhook(t, h, testWebhookToken, confirmEventBody("evt_wh_3", "ORD-WH-MISSING"))
	if w.Code != http.StatusOK {
		t.Fatalf("webhook must answer 200, got %d", w.Code)
	}
	resp := decodeWebhookEnvelope(t, w)
	if resp.StatusCode != 404 {
		t.Fatalf("status_code want 404 got %d", resp.StatusCode)
	}
}

func TestPaymentWebhookRejectsBadToken(t *testing.T) {
	h, db := setupWebhookHandlerTest(t)
	order := createWebhookHandlerOrder(t, db, "ORD-WH-0003")

	w := postWebhook(t, h, "wrong-token", confirmEventBody("evt_wh_4", order.OrderNo))
	resp := decodeWebhookEnvelope(t, w)
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}

	var eventCount int64
	if err := db.Model(&models.WebhookEvent{}).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("rejected delivery must not log events, got %d", eventCount)
	}
}

func TestPaymentWebhookRejectsMalformedBody(t *testing.T) {
	h, _ := setupWebhookHandlerTest(t)

	w := postWebhook(t, h, testWebhookToken, `{"event":`)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook must answer 200, got %d", w.Code)
	}
	resp := decodeWebhookEnvelope(t, w)
	if resp.StatusCode != 400 {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}
}
