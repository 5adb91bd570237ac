package service

import (
	"strings"

	"github.com/revenda-next/internal/constants"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/repository"
)

// 推广链向上解析的最大层级数，脏数据（环、自引用）也不会越过该边界
const maxUplineDepth = 2

// NetworkService 推广网络解析服务
type NetworkService struct {
	affiliateRepo repository.AffiliateRepository
}

// NewNetworkService 创建推广网络解析服务
func NewNetworkService(affiliateRepo repository.AffiliateRepository) *NetworkService {
	return &NetworkService{affiliateRepo: affiliateRepo}
}

// ResolveChain 根据下单推广码解析卖家与最多两级上级。
// 推广码为空或无法识别时返回空链（订单仍会产生运营方份额）；
// 非 active 层级被排除但不中断向上解析。
func (s *NetworkService) ResolveChain(referralCode string) (CommissionChain, error) {
	chain := CommissionChain{}
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return chain, nil
	}

	seller, err := s.affiliateRepo.GetByCode(code)
	if err != nil {
		return chain, err
	}
	if seller == nil {
		logger.Debugw("network_resolve_unknown_referral_code", "referral_code", code)
		return chain, nil
	}
	if seller.Status == constants.AffiliateStatusActive {
		sellerID := seller.ID
		chain.SellerID = &sellerID
	}

	targets := []**uint{&chain.LevelOneID, &chain.LevelTwoID}
	visited := map[uint]bool{seller.ID: true}
	current := seller
	for depth := 0; depth < maxUplineDepth; depth++ {
		if current.SponsorID == nil {
			break
		}
		sponsor, err := s.affiliateRepo.GetByID(*current.SponsorID)
		if err != nil {
			return chain, err
		}
		if sponsor == nil {
			logger.Warnw("network_resolve_dangling_sponsor",
				"affiliate_id", current.ID,
				"sponsor_id", *current.SponsorID,
			)
			break
		}
		if visited[sponsor.ID] {
			logger.Warnw("network_resolve_sponsor_cycle",
				"affiliate_id", current.ID,
				"sponsor_id", sponsor.ID,
			)
			break
		}
		visited[sponsor.ID] = true
		if sponsor.Status == constants.AffiliateStatusActive {
			sponsorID := sponsor.ID
			*targets[depth] = &sponsorID
		}
		current = sponsor
	}
	return chain, nil
}
