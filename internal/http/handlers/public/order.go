package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/revenda-next/internal/http/response"
	"github.com/revenda-next/internal/repository"
	"github.com/revenda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterOrderRequest 结算完成订单的接入请求
type RegisterOrderRequest struct {
	OrderNo      string `json:"order_no" binding:"required"`
	TotalCents   int64  `json:"total_cents" binding:"required"`
	Currency     string `json:"currency"`
	ReferralCode string `json:"referral_code"`
	ProviderRef  string `json:"provider_ref"`
}

// RegisterOrder 接收订单协作方推送的结算完成订单并落库分佣台账
func (h *Handler) RegisterOrder(c *gin.Context) {
	var req RegisterOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	order, err := h.OrderService.RegisterOrder(service.RegisterOrderInput{
		OrderNo:      req.OrderNo,
		TotalCents:   req.TotalCents,
		Currency:     req.Currency,
		ReferralCode: req.ReferralCode,
		ProviderRef:  req.ProviderRef,
	})
	if err != nil {
		respondOrderRegisterError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 按订单编号查询订单与分佣台账
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "order no is required", nil)
		return
	}
	order, records, err := h.OrderService.ListOrderCommissions(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"order":       order,
		"commissions": records,
	})
}

// ListOrders 查询订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
	}
	if from := strings.TrimSpace(c.Query("created_from")); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.CreatedFrom = &parsed
		}
	}
	if to := strings.TrimSpace(c.Query("created_to")); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.CreatedTo = &parsed
		}
	}

	orders, total, err := h.OrderRepo.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// ListAffiliateCommissions 查询推广人的分佣记录
func (h *Handler) ListAffiliateCommissions(c *gin.Context) {
	affiliateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || affiliateID == 0 {
		respondError(c, response.CodeBadRequest, "affiliate id invalid", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	records, total, err := h.OrderService.ListAffiliateCommissions(uint(affiliateID), page, pageSize, c.Query("status"))
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "commission fetch failed", err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
