package router

import (
	"fmt"
	"strings"

	"github.com/bionail-next/internal/cache"
	"github.com/bionail-next/internal/config"
	adminhandlers "github.com/bionail-next/internal/http/handlers/admin"
	publichandlers "github.com/bionail-next/internal/http/handlers/public"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bn"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts, retry in %d seconds",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts, retry in %d seconds",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/categories", publicHandler.GetCategories)
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProductBySlug)
		}

		// 推广落地页点击上报（无需鉴权）
		apiV1.POST("/affiliate/track-click", publicHandler.TrackAffiliateClick)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/password", publicHandler.UserChangePassword)

			user.GET("/affiliate/dashboard", publicHandler.GetAffiliateDashboard)
			user.GET("/affiliate/referrals", publicHandler.GetAffiliateReferrals)
			user.GET("/affiliate/analytics", publicHandler.GetAffiliateAnalytics)

			user.GET("/points/balance", publicHandler.GetPointsBalance)
			user.GET("/points/transactions", publicHandler.GetPointsTransactions)

			user.GET("/rewards", publicHandler.GetRewards)
			user.POST("/rewards/redeem", publicHandler.RedeemReward)
			user.GET("/redemptions", publicHandler.GetMyRedemptions)

			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.GetMyOrders)
			user.GET("/orders/:id", publicHandler.GetMyOrder)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				// 推广体系
				authorized.GET("/affiliates", adminHandler.GetAdminAffiliates)
				authorized.GET("/affiliates/:id", adminHandler.GetAdminAffiliate)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAdminAffiliateStatus)
				authorized.GET("/referrals", adminHandler.GetAdminReferrals)

				// 积分体系
				authorized.POST("/points/adjust", adminHandler.AdjustAdminPoints)
				authorized.GET("/points-transactions", adminHandler.GetAdminPointsTransactions)
				authorized.GET("/points-configs", adminHandler.GetAdminPointsConfigs)
				authorized.POST("/points-configs", adminHandler.CreateAdminPointsConfig)
				authorized.PUT("/points-configs/:id", adminHandler.UpdateAdminPointsConfig)
				authorized.DELETE("/points-configs/:id", adminHandler.DeleteAdminPointsConfig)

				// 奖励与兑换
				authorized.GET("/rewards", adminHandler.GetAdminRewards)
				authorized.POST("/rewards", adminHandler.CreateAdminReward)
				authorized.PUT("/rewards/:id", adminHandler.UpdateAdminReward)
				authorized.DELETE("/rewards/:id", adminHandler.DeleteAdminReward)
				authorized.GET("/redemptions", adminHandler.GetAdminRedemptions)

				// 优惠券
				authorized.GET("/coupons", adminHandler.GetAdminCoupons)
				authorized.GET("/coupons/:id", adminHandler.GetAdminCoupon)
				authorized.POST("/coupons", adminHandler.CreateAdminCoupon)
				authorized.PUT("/coupons/:id", adminHandler.UpdateAdminCoupon)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteAdminCoupon)

				// 订单
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)

				// 商品与分类
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateAdminProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateAdminProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteAdminProduct)
				authorized.GET("/categories", adminHandler.GetAdminCategories)
				authorized.POST("/categories", adminHandler.CreateAdminCategory)
				authorized.PUT("/categories/:id", adminHandler.UpdateAdminCategory)
				authorized.DELETE("/categories/:id", adminHandler.DeleteAdminCategory)

				// 积分计划配置
				authorized.GET("/settings/points-program", adminHandler.GetAdminPointsProgram)
				authorized.PUT("/settings/points-program", adminHandler.UpdateAdminPointsProgram)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
