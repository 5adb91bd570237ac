package public

import (
	"strings"

	"github.com/revenda-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ValidateWallet 校验提现钱包是否存在且可用
func (h *Handler) ValidateWallet(c *gin.Context) {
	walletID := strings.TrimSpace(c.Param("wallet_id"))
	if walletID == "" {
		respondError(c, response.CodeBadRequest, "wallet id is required", nil)
		return
	}

	result, err := h.WalletService.ValidateWallet(c.Request.Context(), walletID)
	if err != nil {
		respondWalletValidateError(c, err)
		return
	}
	response.Success(c, result)
}
