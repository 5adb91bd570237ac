package asaaspay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("asaaspay config invalid")
	ErrRequestFailed    = errors.New("asaaspay request failed")
	ErrResponseInvalid  = errors.New("asaaspay response invalid")
	ErrWalletNotFound   = errors.New("asaaspay wallet not found")
	ErrTransferRejected = errors.New("asaaspay transfer rejected")
	ErrEventInvalid     = errors.New("asaaspay webhook event invalid")
)

// 处理方事件类型常量
const (
	EventPaymentCreated   = "PAYMENT_CREATED"
	EventPaymentUpdated   = "PAYMENT_UPDATED"
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
	EventPaymentOverdue   = "PAYMENT_OVERDUE"
	EventPaymentDeleted   = "PAYMENT_DELETED"
	EventPaymentRefunded  = "PAYMENT_REFUNDED"
)

const defaultTimeoutMS = 5000

// Config 网关配置
type Config struct {
	BaseURL   string `json:"base_url"`   // 网关地址，如 https://api.asaas.com
	APIKey    string `json:"api_key"`    // 接口密钥
	TimeoutMS int    `json:"timeout_ms"` // 请求超时（毫秒）
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = defaultTimeoutMS
	}
}

// Wallet 钱包查询结果
type Wallet struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// GetWallet 查询钱包（存在性与可用状态）
func GetWallet(ctx context.Context, cfg *Config, walletID string) (*Wallet, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	id := strings.TrimSpace(walletID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty wallet id", ErrConfigInvalid)
	}

	endpoint := fmt.Sprintf("%s/v3/wallets/%s", cfg.BaseURL, id)
	status, body, err := doRequest(ctx, cfg, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if status == http.StatusNotFound {
		return nil, ErrWalletNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, status)
	}

	var wallet Wallet
	if err := json.Unmarshal(body, &wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(wallet.ID) == "" {
		return nil, fmt.Errorf("%w: missing wallet id", ErrResponseInvalid)
	}
	return &wallet, nil
}

// TransferInput 转账请求输入
type TransferInput struct {
	WalletID          string // 收款钱包
	AmountCents       int64  // 转账金额（最小货币单位）
	ExternalReference string // 我方业务引用（提现单号）
	Description       string // 转账说明
}

// Transfer 转账结果
type Transfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateTransfer 发起钱包转账（金额换算为法币单位）
func CreateTransfer(ctx context.Context, cfg *Config, input TransferInput) (*Transfer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if strings.TrimSpace(input.WalletID) == "" || input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: invalid transfer input", ErrConfigInvalid)
	}

	value, _ := decimal.NewFromInt(input.AmountCents).Div(decimal.NewFromInt(100)).Float64()
	params := map[string]interface{}{
		"walletId":          strings.TrimSpace(input.WalletID),
		"value":             value,
		"externalReference": strings.TrimSpace(input.ExternalReference),
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		params["description"] = desc
	}

	endpoint := cfg.BaseURL + "/v3/transfers"
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	status, body, err := doRequest(ctx, cfg, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransferRejected, status, truncateBody(body))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, status)
	}

	var transfer Transfer
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(transfer.ID) == "" {
		return nil, fmt.Errorf("%w: missing transfer id", ErrResponseInvalid)
	}
	return &transfer, nil
}

// WebhookPayment Webhook 载荷中的支付对象
type WebhookPayment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"externalReference"`
}

// WebhookEvent 入站 Webhook 事件
type WebhookEvent struct {
	ID      string         `json:"id"`
	Event   string         `json:"event"`
	Payment WebhookPayment `json:"payment"`
}

// ParseWebhookEvent 解析入站 Webhook 载荷
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrEventInvalid)
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrEventInvalid)
	}
	if strings.TrimSpace(event.Event) == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrEventInvalid)
	}
	return &event, nil
}

func doRequest(ctx context.Context, cfg *Config, method, endpoint string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "...(truncated)"
	}
	return text
}
