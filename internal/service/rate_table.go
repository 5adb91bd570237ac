package service

import (
	"fmt"

	"github.com/revenda-next/internal/config"

	"github.com/shopspring/decimal"
)

// 合计比例固定为订单金额的 30%
var expectedTotalRatePercent = decimal.NewFromInt(30)

var percentHundred = decimal.NewFromInt(100)

// RateTable 固定分佣比例表（百分比），进程启动时校验合计
type RateTable struct {
	Seller    decimal.Decimal
	LevelOne  decimal.Decimal
	LevelTwo  decimal.Decimal
	OperatorA decimal.Decimal
	OperatorB decimal.Decimal
}

// DefaultRateTable 返回缺省比例表：卖家15 / 一级3 / 二级2 / 运营方各5
func DefaultRateTable() RateTable {
	return RateTable{
		Seller:    decimal.NewFromInt(15),
		LevelOne:  decimal.NewFromInt(3),
		LevelTwo:  decimal.NewFromInt(2),
		OperatorA: decimal.NewFromInt(5),
		OperatorB: decimal.NewFromInt(5),
	}
}

// RateTableFromConfig 从配置构建比例表
func RateTableFromConfig(cfg config.CommissionConfig) RateTable {
	return RateTable{
		Seller:    decimal.NewFromFloat(cfg.SellerPercent),
		LevelOne:  decimal.NewFromFloat(cfg.LevelOnePercent),
		LevelTwo:  decimal.NewFromFloat(cfg.LevelTwoPercent),
		OperatorA: decimal.NewFromFloat(cfg.OperatorAPercent),
		OperatorB: decimal.NewFromFloat(cfg.OperatorBPercent),
	}
}

// TotalRate 返回比例表合计（百分比）
func (t RateTable) TotalRate() decimal.Decimal {
	return t.Seller.
		Add(t.LevelOne).
		Add(t.LevelTwo).
		Add(t.OperatorA).
		Add(t.OperatorB)
}

// Validate 校验比例表合计与固定总比例一致，任何一项为负视为非法
func (t RateTable) Validate() error {
	for _, rate := range []decimal.Decimal{t.Seller, t.LevelOne, t.LevelTwo, t.OperatorA, t.OperatorB} {
		if rate.IsNegative() {
			return fmt.Errorf("%w: negative rate %s", ErrRateTableInvalid, rate.String())
		}
	}
	if total := t.TotalRate(); !total.Equal(expectedTotalRatePercent) {
		return fmt.Errorf("%w: got %s, want %s", ErrRateTableInvalid, total.String(), expectedTotalRatePercent.String())
	}
	return nil
}
