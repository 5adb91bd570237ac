package provider

import (
	"github.com/revenda-next/internal/cache"
	"github.com/revenda-next/internal/config"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/models"
	"github.com/revenda-next/internal/payment/asaaspay"
	"github.com/revenda-next/internal/queue"
	"github.com/revenda-next/internal/repository"
	"github.com/revenda-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	GatewayCfg  *asaaspay.Config

	// Repositories
	AffiliateRepo    repository.AffiliateRepository
	OrderRepo        repository.OrderRepository
	CommissionRepo   repository.CommissionRepository
	WebhookEventRepo repository.WebhookEventRepository
	WithdrawalRepo   repository.WithdrawalRepository

	// Services
	NetworkService   *service.NetworkService
	OrderService     *service.OrderService
	ReconcileService *service.ReconcileService
	WalletService    *service.WalletService
	WithdrawService  *service.WithdrawService
}

// NewContainer 初始化容器。比例表不合法时直接 panic，拒绝带病启动。
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		GatewayCfg: &asaaspay.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			APIKey:    cfg.Gateway.APIKey,
			TimeoutMS: cfg.Gateway.TimeoutMS,
		},
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.WebhookEventRepo = repository.NewWebhookEventRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
}

func (c *Container) initServices() {
	rateTable := service.RateTableFromConfig(c.Config.Commission)
	if err := rateTable.Validate(); err != nil {
		logger.Errorw("provider_rate_table_invalid", "error", err)
		panic(err)
	}

	c.NetworkService = service.NewNetworkService(c.AffiliateRepo)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.CommissionRepo,
		c.AffiliateRepo,
		c.NetworkService,
		rateTable,
		c.Config.Commission,
	)
	c.ReconcileService = service.NewReconcileService(c.OrderRepo, c.CommissionRepo, c.WebhookEventRepo)
	c.WalletService = service.NewWalletService(c.GatewayCfg)
	c.WithdrawService = service.NewWithdrawService(
		c.AffiliateRepo,
		c.CommissionRepo,
		c.WithdrawalRepo,
		c.WalletService,
		c.QueueClient,
		c.GatewayCfg,
		c.Config.Commission.MinWithdrawCents,
	)
}
