package service

import (
	"fmt"

	"github.com/revenda-next/internal/constants"

	"github.com/shopspring/decimal"
)

// CommissionChain 解析后的推广链（缺失层级为 nil）
type CommissionChain struct {
	SellerID   *uint
	LevelOneID *uint
	LevelTwoID *uint
}

// CommissionSplit 单个角色的分佣计算结果
type CommissionSplit struct {
	Role        string
	AffiliateID *uint
	RatePercent decimal.Decimal
	ValueCents  int64
}

// ExpectedSplitTotal 计算订单应分出的总金额：round(V * 30%)，四舍五入远离零
func ExpectedSplitTotal(table RateTable, totalCents int64) int64 {
	return decimal.NewFromInt(totalCents).
		Mul(table.TotalRate()).
		Div(percentHundred).
		Round(0).
		IntPart()
}

// CalculateSplits 纯函数：按比例表与推广链计算分佣明细。
// 缺失层级的比例平均追加到两个运营方；各份额按金额四舍五入后，
// 余数校正落在最大份额上，保证合计精确等于 round(V * 30%)。
func CalculateSplits(table RateTable, totalCents int64, chain CommissionChain) ([]CommissionSplit, error) {
	if totalCents <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrOrderValueInvalid, totalCents)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	// 缺失层级的比例汇总后平分给两个运营方
	unallocated := decimal.Zero
	splits := make([]CommissionSplit, 0, 5)
	if chain.SellerID != nil {
		splits = append(splits, CommissionSplit{
			Role:        constants.CommissionRoleSeller,
			AffiliateID: chain.SellerID,
			RatePercent: table.Seller,
		})
	} else {
		unallocated = unallocated.Add(table.Seller)
	}
	if chain.LevelOneID != nil {
		splits = append(splits, CommissionSplit{
			Role:        constants.CommissionRoleLevelOne,
			AffiliateID: chain.LevelOneID,
			RatePercent: table.LevelOne,
		})
	} else {
		unallocated = unallocated.Add(table.LevelOne)
	}
	if chain.LevelTwoID != nil {
		splits = append(splits, CommissionSplit{
			Role:        constants.CommissionRoleLevelTwo,
			AffiliateID: chain.LevelTwoID,
			RatePercent: table.LevelTwo,
		})
	} else {
		unallocated = unallocated.Add(table.LevelTwo)
	}

	half := unallocated.Div(decimal.NewFromInt(2))
	splits = append(splits,
		CommissionSplit{Role: constants.CommissionRoleOperatorA, RatePercent: table.OperatorA.Add(half)},
		CommissionSplit{Role: constants.CommissionRoleOperatorB, RatePercent: table.OperatorB.Add(half)},
	)

	total := decimal.NewFromInt(totalCents)
	target := ExpectedSplitTotal(table, totalCents)

	var sum int64
	largest := 0
	for i := range splits {
		value := total.
			Mul(splits[i].RatePercent).
			Div(percentHundred).
			Round(0).
			IntPart()
		splits[i].ValueCents = value
		sum += value
		if value > splits[largest].ValueCents {
			largest = i
		}
	}

	// 余数校正：舍入偏差全部落在最大份额上
	if diff := target - sum; diff != 0 {
		splits[largest].ValueCents += diff
	}
	return splits, nil
}

// VerifySplitTotal 校验分佣明细合计与期望总额一致（落库前最后一道防线）
func VerifySplitTotal(table RateTable, totalCents int64, splits []CommissionSplit) error {
	var sum int64
	for _, split := range splits {
		sum += split.ValueCents
	}
	if target := ExpectedSplitTotal(table, totalCents); sum != target {
		return fmt.Errorf("%w: sum %d, want %d", ErrInvariantViolation, sum, target)
	}
	return nil
}
