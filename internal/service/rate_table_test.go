package service

import (
	"errors"
	"testing"

	"github.com/revenda-next/internal/config"

	"github.com/shopspring/decimal"
)

func TestDefaultRateTableValidates(t *testing.T) {
	table := DefaultRateTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default rate table should validate: %v", err)
	}
	if !table.TotalRate().Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total rate 30, got %s", table.TotalRate())
	}
}

func TestRateTableValidateRejectsWrongTotal(t *testing.T) {
	table := DefaultRateTable()
	table.Seller = decimal.NewFromInt(20)

	err := table.Validate()
	if !errors.Is(err, ErrRateTableInvalid) {
		t.Fatalf("expected ErrRateTableInvalid, got %v", err)
	}
}

func TestRateTableValidateRejectsNegativeRate(t *testing.T) {
	table := DefaultRateTable()
	table.LevelOne = decimal.NewFromInt(-3)
	table.Seller = decimal.NewFromInt(21)

	err := table.Validate()
	if !errors.Is(err, ErrRateTableInvalid) {
		t.Fatalf("expected ErrRateTableInvalid for negative rate, got %v", err)
	}
}

func TestRateTableFromConfig(t *testing.T) {
	table := RateTableFromConfig(config.CommissionConfig{
		SellerPercent:    15,
		LevelOnePercent:  3,
		LevelTwoPercent:  2,
		OperatorAPercent: 5,
		OperatorBPercent: 5,
	})
	if err := table.Validate(); err != nil {
		t.Fatalf("config rate table should validate: %v", err)
	}
	if !table.Seller.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected seller rate 15, got %s", table.Seller)
	}
}
