package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/revenda-next/internal/cache"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/payment/asaaspay"

	"github.com/google/uuid"
)

// 通过校验的钱包缓存时长
const walletCacheTTL = 10 * time.Minute

// WalletService 收款钱包校验服务
type WalletService struct {
	gatewayCfg *asaaspay.Config
}

// NewWalletService 创建钱包校验服务
func NewWalletService(gatewayCfg *asaaspay.Config) *WalletService {
	return &WalletService{gatewayCfg: gatewayCfg}
}

// WalletCheckResult 钱包校验结果
type WalletCheckResult struct {
	WalletID    string `json:"wallet_id"`
	Active      bool   `json:"active"`
	DisplayName string `json:"display_name,omitempty"`
}

// ValidateWallet 校验钱包标识格式与处理方侧的存在性、可用性。
// 格式不合法直接拒绝，不产生任何网络调用；网关异常返回 ErrGatewayUnavailable，
// 调用方据此提示稍后重试，绝不将网关故障当成钱包不存在。
func (s *WalletService) ValidateWallet(ctx context.Context, walletID string) (*WalletCheckResult, error) {
	id := strings.TrimSpace(walletID)
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %q", ErrWalletFormatInvalid, id)
	}

	cacheKey := "wallet:" + id
	var cached WalletCheckResult
	hit, err := cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		logger.Warnw("wallet_cache_read_failed", "wallet_id", id, "error", err)
	} else if hit {
		return &cached, nil
	}

	wallet, err := asaaspay.GetWallet(ctx, s.gatewayCfg, id)
	if err != nil {
		switch {
		case errors.Is(err, asaaspay.ErrWalletNotFound):
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, id)
		default:
			logger.Warnw("wallet_gateway_unavailable", "wallet_id", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
	}
	if !wallet.Active {
		return nil, fmt.Errorf("%w: %q", ErrWalletInactive, id)
	}

	result := &WalletCheckResult{
		WalletID:    wallet.ID,
		Active:      true,
		DisplayName: wallet.Name,
	}
	if err := cache.SetJSON(ctx, cacheKey, result, walletCacheTTL); err != nil {
		logger.Warnw("wallet_cache_write_failed", "wallet_id", id, "error", err)
	}
	return result, nil
}
