package public

import (
	"errors"

	"github.com/revenda-next/internal/http/response"
	"github.com/revenda-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var orderRegisterErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNoRequired, code: response.CodeBadRequest, msg: "order no is required"},
	{target: service.ErrOrderValueInvalid, code: response.CodeBadRequest, msg: "order value must be positive"},
	{target: service.ErrInvariantViolation, code: response.CodeInternal, msg: "commission split verification failed"},
	{target: service.ErrRateTableInvalid, code: response.CodeInternal, msg: "commission rate table invalid"},
}

var walletValidateErrorRules = []mappedHandlerError{
	{target: service.ErrWalletFormatInvalid, code: response.CodeBadRequest, msg: "wallet id format invalid"},
	{target: service.ErrWalletNotFound, code: response.CodeNotFound, msg: "wallet not found"},
	{target: service.ErrWalletInactive, code: response.CodeBadRequest, msg: "wallet is inactive"},
	{target: service.ErrGatewayUnavailable, code: response.CodeUnavailable, msg: "payment gateway unavailable, retry later"},
}

var withdrawRequestErrorRules = []mappedHandlerError{
	{target: service.ErrAffiliateNotFound, code: response.CodeNotFound, msg: "affiliate not found"},
	{target: service.ErrAffiliateInactive, code: response.CodeBadRequest, msg: "affiliate is not active"},
	{target: service.ErrWithdrawAmountInvalid, code: response.CodeBadRequest, msg: "withdraw amount must be positive"},
	{target: service.ErrWithdrawBelowMinimum, code: response.CodeBadRequest, msg: "withdraw amount below minimum"},
	{target: service.ErrWithdrawInsufficient, code: response.CodeBadRequest, msg: "withdraw amount exceeds available balance"},
	{target: service.ErrWithdrawWalletRequired, code: response.CodeBadRequest, msg: "payout wallet is not configured"},
	{target: service.ErrWalletFormatInvalid, code: response.CodeBadRequest, msg: "wallet id format invalid"},
}

var webhookErrorRules = []mappedHandlerError{
	{target: service.ErrEventIDRequired, code: response.CodeBadRequest, msg: "event id is required"},
	{target: service.ErrEventPayloadInvalid, code: response.CodeBadRequest, msg: "event payload invalid"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
}

func respondOrderRegisterError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderRegisterErrorRules, response.CodeInternal, "order register failed")
}

func respondWalletValidateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, walletValidateErrorRules, response.CodeInternal, "wallet validation failed")
}

func respondWithdrawRequestError(c *gin.Context, err error) {
	respondWithMappedError(c, err, withdrawRequestErrorRules, response.CodeInternal, "withdraw request failed")
}

func respondWebhookError(c *gin.Context, err error) {
	respondWithMappedError(c, err, webhookErrorRules, response.CodeInternal, "webhook processing failed")
}
