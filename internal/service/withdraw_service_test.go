package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/queue"
	"github.com/revenda-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testPayoutWallet = "99999999-8888-4777-8666-555555555555"

func setupWithdrawServiceTest(t *testing.T, gateway http.HandlerFunc) (*WithdrawService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:withdraw_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}, &models.Order{}, &models.CommissionRecord{}, &models.Withdrawal{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	if gateway == nil {
		gateway = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)
	gatewayCfg := &asaaspay.Config{BaseURL: server.URL, APIKey: "test-key", TimeoutMS: 2000}

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("build queue client failed: %v", err)
	}

	svc := NewWithdrawService(
		repository.NewAffiliateRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewWithdrawalRepository(db),
		NewWalletService(gatewayCfg),
		queueClient,
		gatewayCfg,
		1000,
	)
	return svc, db
}

// 活跃钱包查询 + 转账成功的网关桩
func payoutGatewayStub(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v3/wallets/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     testPayoutWallet,
				"active": true,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/v3/transfers":
			var params map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				t.Errorf("decode transfer body failed: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "tr_0001",
				"status": "PENDING",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func createWithdrawTestAffiliate(t *testing.T, db *gorm.DB, code, wallet, status string) models.Affiliate {
	t.Helper()

	row := models.Affiliate{
		Code:     code,
		Name:     "affiliate " + code,
		WalletID: wallet,
		Status:   status,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return row
}

func createPaidCommission(t *testing.T, db *gorm.DB, affiliateID uint, orderNo string, valueCents int64) {
	t.Helper()

	order := models.Order{
		OrderNo:    orderNo,
		TotalCents: valueCents * 5,
		Currency:   constants.CurrencyDefault,
		Status:     constants.OrderStatusConfirmed,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	now := time.Now()
	record := models.CommissionRecord{
		OrderID:     order.ID,
		AffiliateID: &affiliateID,
		Role:        constants.CommissionRoleSeller,
		RatePercent: decimal.NewFromInt(15),
		ValueCents:  valueCents,
		Status:      constants.CommissionStatusPaid,
		PaidAt:      &now,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}
}

func createWithdrawRow(t *testing.T, db *gorm.DB, affiliateID uint, amountCents int64, status string) models.Withdrawal {
	t.Helper()

	row := models.Withdrawal{
		AffiliateID: affiliateID,
		AmountCents: amountCents,
		WalletID:    testPayoutWallet,
		Status:      status,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	return row
}

func TestAvailableBalanceExcludesRejectedWithdrawals(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD01", testPayoutWallet, constants.AffiliateStatusActive)

	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0001", 10000)
	createWithdrawRow(t, db, affiliate.ID, 3000, constants.WithdrawalStatusPending)
	createWithdrawRow(t, db, affiliate.ID, 2000, constants.WithdrawalStatusRejected)

	available, err := svc.AvailableBalance(affiliate.ID)
	if err != nil {
		t.Fatalf("available balance failed: %v", err)
	}
	if available != 7000 {
		t.Fatalf("expected 7000 available, got %d", available)
	}
}

func TestRequestWithdrawBelowMinimum(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD02", testPayoutWallet, constants.AffiliateStatusActive)
	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0002", 10000)

	_, err := svc.RequestWithdraw(RequestWithdrawInput{AffiliateID: affiliate.ID, AmountCents: 500})
	if !errors.Is(err, ErrWithdrawBelowMinimum) {
		t.Fatalf("expected ErrWithdrawBelowMinimum, got %v", err)
	}
}

func TestRequestWithdrawInsufficientBalance(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD03", testPayoutWallet, constants.AffiliateStatusActive)
	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0003", 5000)
	createWithdrawRow(t, db, affiliate.ID, 4000, constants.WithdrawalStatusCompleted)

	_, err := svc.RequestWithdraw(RequestWithdrawInput{AffiliateID: affiliate.ID, AmountCents: 2000})
	if !errors.Is(err, ErrWithdrawInsufficient) {
		t.Fatalf("expected ErrWithdrawInsufficient, got %v", err)
	}
}

func TestRequestWithdrawInactiveAffiliate(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD04", testPayoutWallet, constants.AffiliateStatusSuspended)

	_, err := svc.RequestWithdraw(RequestWithdrawInput{AffiliateID: affiliate.ID, AmountCents: 2000})
	if !errors.Is(err, ErrAffiliateInactive) {
		t.Fatalf("expected ErrAffiliateInactive, got %v", err)
	}
}

func TestRequestWithdrawWithoutWallet(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD05", "", constants.AffiliateStatusActive)
	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0005", 10000)

	_, err := svc.RequestWithdraw(RequestWithdrawInput{AffiliateID: affiliate.ID, AmountCents: 2000})
	if !errors.Is(err, ErrWithdrawWalletRequired) {
		t.Fatalf("expected ErrWithdrawWalletRequired, got %v", err)
	}
}

func TestRequestWithdrawCreatesPendingRow(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD06", testPayoutWallet, constants.AffiliateStatusActive)
	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0006", 10000)

	withdrawal, err := svc.RequestWithdraw(RequestWithdrawInput{AffiliateID: affiliate.ID, AmountCents: 6000})
	if err != nil {
		t.Fatalf("request withdraw failed: %v", err)
	}
	if withdrawal.Status != constants.WithdrawalStatusPending {
		t.Fatalf("expected pending withdrawal, got %s", withdrawal.Status)
	}
	if withdrawal.WalletID != testPayoutWallet {
		t.Fatalf("expected profile wallet, got %s", withdrawal.WalletID)
	}

	available, err := svc.AvailableBalance(affiliate.ID)
	if err != nil {
		t.Fatalf("available balance failed: %v", err)
	}
	if available != 4000 {
		t.Fatalf("pending withdrawal must reserve balance, got %d", available)
	}
}

func TestExecutePayoutCompletes(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, payoutGatewayStub(t))
	affiliate := createWithdrawTestAffiliate(t, db, "WD07", testPayoutWallet, constants.AffiliateStatusActive)
	withdrawal := createWithdrawRow(t, db, affiliate.ID, 5000, constants.WithdrawalStatusPending)

	if err := svc.ExecutePayout(context.Background(), withdrawal.ID); err != nil {
		t.Fatalf("execute payout failed: %v", err)
	}

	reloaded, err := svc.GetWithdrawal(withdrawal.ID)
	if err != nil {
		t.Fatalf("reload withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusCompleted {
		t.Fatalf("expected completed, got %s", reloaded.Status)
	}
	if reloaded.ProviderRef != "tr_0001" {
		t.Fatalf("expected provider ref tr_0001, got %s", reloaded.ProviderRef)
	}
	if reloaded.ProcessedAt == nil {
		t.Fatalf("expected processed_at to be set")
	}
}

func TestExecutePayoutRejectsOnMissingWallet(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	affiliate := createWithdrawTestAffiliate(t, db, "WD08", testPayoutWallet, constants.AffiliateStatusActive)
	withdrawal := createWithdrawRow(t, db, affiliate.ID, 5000, constants.WithdrawalStatusPending)

	if err := svc.ExecutePayout(context.Background(), withdrawal.ID); err != nil {
		t.Fatalf("execute payout failed: %v", err)
	}

	reloaded, err := svc.GetWithdrawal(withdrawal.ID)
	if err != nil {
		t.Fatalf("reload withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", reloaded.Status)
	}
	if reloaded.RejectReason == "" {
		t.Fatalf("expected reject reason recorded")
	}

	// 驳回后余额释放
	createPaidCommission(t, db, affiliate.ID, "ORD-WD-0008", 5000)
	available, err := svc.AvailableBalance(affiliate.ID)
	if err != nil {
		t.Fatalf("available balance failed: %v", err)
	}
	if available != 5000 {
		t.Fatalf("expected rejected withdrawal released, got %d", available)
	}
}

func TestExecutePayoutGatewayDownIsRetriable(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	affiliate := createWithdrawTestAffiliate(t, db, "WD09", testPayoutWallet, constants.AffiliateStatusActive)
	withdrawal := createWithdrawRow(t, db, affiliate.ID, 5000, constants.WithdrawalStatusPending)

	if err := svc.ExecutePayout(context.Background(), withdrawal.ID); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	reloaded, err := svc.GetWithdrawal(withdrawal.ID)
	if err != nil {
		t.Fatalf("reload withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusProcessing {
		t.Fatalf("expected processing for retry, got %s", reloaded.Status)
	}
}

func TestExecutePayoutIdempotentOnCompleted(t *testing.T) {
	svc, db := setupWithdrawServiceTest(t, nil)
	affiliate := createWithdrawTestAffiliate(t, db, "WD10", testPayoutWallet, constants.AffiliateStatusActive)
	withdrawal := createWithdrawRow(t, db, affiliate.ID, 5000, constants.WithdrawalStatusCompleted)

	if err := svc.ExecutePayout(context.Background(), withdrawal.ID); err != nil {
		t.Fatalf("replayed payout must be no-op: %v", err)
	}

	reloaded, err := svc.GetWithdrawal(withdrawal.ID)
	if err != nil {
		t.Fatalf("reload withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusCompleted {
		t.Fatalf("expected completed unchanged, got %s", reloaded.Status)
	}
}
