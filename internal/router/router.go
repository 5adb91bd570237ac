package router

import (
	"fmt"
	"strings"

	"github.com/revenda-next/internal/cache"
	"github.com/revenda-next/internal/config"
	publichandlers "github.com/revenda-next/internal/http/handlers/public"
	"github.com/revenda-next/internal/logger"
	"github.com/revenda-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rv"
	}
	redisClient := cache.Client()
	webhookRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:webhook", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 订单接入与查询
		apiV1.POST("/orders", publicHandler.RegisterOrder)
		apiV1.GET("/orders", publicHandler.ListOrders)
		apiV1.GET("/orders/by-order-no/:order_no", publicHandler.GetOrder)

		// 支付处理方回调与事件日志
		apiV1.POST("/payments/webhook", RateLimitMiddleware(redisClient, webhookRule, KeyByIP), publicHandler.PaymentWebhook)
		apiV1.GET("/webhook-events", publicHandler.ListWebhookEvents)

		// 推广人分佣与余额
		apiV1.GET("/affiliates/:id/commissions", publicHandler.ListAffiliateCommissions)
		apiV1.GET("/affiliates/:id/balance", publicHandler.GetAffiliateBalance)

		// 钱包校验
		apiV1.GET("/wallets/:wallet_id/validate", publicHandler.ValidateWallet)

		// 提现
		apiV1.POST("/withdrawals", publicHandler.CreateWithdrawal)
		apiV1.GET("/withdrawals", publicHandler.ListWithdrawals)
		apiV1.GET("/withdrawals/:id", publicHandler.GetWithdrawal)
	}

	// 指标采集
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
