package service

import "errors"

// 业务错误定义（哨兵错误，handler 层映射为响应码）
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNoRequired   = errors.New("order no is required")
	ErrOrderValueInvalid = errors.New("order value must be positive")

	ErrAffiliateNotFound = errors.New("affiliate not found")
	ErrAffiliateInactive = errors.New("affiliate is not active")

	ErrInvariantViolation = errors.New("commission split sum does not match expected total")
	ErrRateTableInvalid   = errors.New("rate table total does not match expected aggregate rate")

	ErrEventIDRequired     = errors.New("external event id is required")
	ErrEventPayloadInvalid = errors.New("webhook event payload invalid")

	ErrWalletFormatInvalid = errors.New("wallet id format invalid")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletInactive      = errors.New("wallet is inactive")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")

	ErrWithdrawAmountInvalid  = errors.New("withdraw amount must be positive")
	ErrWithdrawBelowMinimum   = errors.New("withdraw amount below configured minimum")
	ErrWithdrawInsufficient   = errors.New("withdraw amount exceeds available balance")
	ErrWithdrawWalletRequired = errors.New("withdraw wallet is not configured")
	ErrWithdrawNotFound       = errors.New("withdrawal not found")
	ErrWithdrawStatusInvalid  = errors.New("withdrawal status does not allow this operation")
)
