package public

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/revenda-next/internal/http/response"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/repository"
	"github.com/revenda-next/internal/service"

	"github.com/gin-gonic/gin"
)

const webhookBodyLimit = 1 << 20

// PaymentWebhook 支付处理方 Webhook 回调。
// 除鉴权失败外一律返回 HTTP 200，业务结果通过响应体表达，避免处理方重投风暴。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	log := requestLog(c)

	if token := strings.TrimSpace(h.Config.Gateway.WebhookToken); token != "" {
		received := strings.TrimSpace(c.GetHeader("asaas-access-token"))
		if received != token {
			log.Warnw("payment_webhook_token_mismatch", "client_ip", c.ClientIP())
			response.Unauthorized(c, "invalid webhook token")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		log.Warnw("payment_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	event, err := asaaspay.ParseWebhookEvent(body)
	if err != nil {
		log.Warnw("payment_webhook_payload_invalid", "client_ip", c.ClientIP(), "error", err)
		respondError(c, response.CodeBadRequest, "event payload invalid", nil)
		return
	}

	log.Infow("payment_webhook_received",
		"external_event_id", event.ID,
		"event_type", event.Event,
		"order_no", event.Payment.ExternalReference,
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	var payload models.JSON
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = nil
	}

	result, err := h.ReconcileService.HandleEvent(service.WebhookEventInput{
		ExternalEventID: event.ID,
		EventType:       event.Event,
		OrderNo:         event.Payment.ExternalReference,
		Payload:         payload,
	})
	if err != nil {
		log.Warnw("payment_webhook_handle_failed",
			"external_event_id", event.ID,
			"event_type", event.Event,
			"error", err,
		)
		respondWebhookError(c, err)
		return
	}

	response.Success(c, gin.H{
		"accepted":     true,
		"outcome":      result.Outcome,
		"order_status": result.OrderStatus,
	})
}

// ListWebhookEvents 查询事件日志列表
func (h *Handler) ListWebhookEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.WebhookEventListFilter{
		Page:      page,
		PageSize:  pageSize,
		EventType: strings.TrimSpace(c.Query("event_type")),
		Outcome:   strings.TrimSpace(c.Query("outcome")),
	}
	if orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64); err == nil {
		filter.OrderID = uint(orderID)
	}

	events, total, err := h.ReconcileService.ListEvents(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "event fetch failed", err)
		return
	}
	response.SuccessWithPage(c, events, response.BuildPagination(page, pageSize, total))
}
