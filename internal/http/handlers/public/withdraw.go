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

// CreateWithdrawalRequest 提现申请请求
type CreateWithdrawalRequest struct {
	AffiliateID uint   `json:"affiliate_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	WalletID    string `json:"wallet_id"`
}

// CreateWithdrawal 发起提现申请
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	withdrawal, err := h.WithdrawService.RequestWithdraw(service.RequestWithdrawInput{
		AffiliateID: req.AffiliateID,
		AmountCents: req.AmountCents,
		WalletID:    req.WalletID,
	})
	if err != nil {
		respondWithdrawRequestError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

// GetWithdrawal 查询单笔提现
func (h *Handler) GetWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "withdrawal id invalid", nil)
		return
	}
	withdrawal, err := h.WithdrawService.GetWithdrawal(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrWithdrawNotFound) {
			respondError(c, response.CodeNotFound, "withdrawal not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		return
	}
	response.Success(c, withdrawal)
}

// ListWithdrawals 查询提现列表
func (h *Handler) ListWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if affiliateID, err := strconv.ParseUint(c.Query("affiliate_id"), 10, 64); err == nil {
		filter.AffiliateID = uint(affiliateID)
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

	rows, total, err := h.WithdrawService.ListWithdrawals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetAffiliateBalance 查询推广人可提现余额
func (h *Handler) GetAffiliateBalance(c *gin.Context) {
	affiliateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || affiliateID == 0 {
		respondError(c, response.CodeBadRequest, "affiliate id invalid", nil)
		return
	}
	balance, err := h.WithdrawService.AvailableBalance(uint(affiliateID))
	if err != nil {
		respondError(c, response.CodeInternal, "balance fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"affiliate_id":    uint(affiliateID),
		"available_cents": balance,
	})
}
