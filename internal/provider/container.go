package provider

import (
	"github.com/bionail-next/internal/cache"
	"github.com/bionail-next/internal/config"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/queue"
	"github.com/bionail-next/internal/repository"
	"github.com/bionail-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	UserRepo        repository.UserRepository
	CategoryRepo    repository.CategoryRepository
	ProductRepo     repository.ProductRepository
	OrderRepo       repository.OrderRepository
	CouponRepo      repository.CouponRepository
	CouponUsageRepo repository.CouponUsageRepository
	AffiliateRepo   repository.AffiliateRepository
	PointsRepo      repository.PointsRepository
	RewardRepo      repository.RewardRepository
	SettingRepo     repository.SettingRepository

	// Services
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	CategoryService     *service.CategoryService
	ProductService      *service.ProductService
	SettingService      *service.SettingService
	CouponService       *service.CouponService
	CouponAdminService  *service.CouponAdminService
	AffiliateService    *service.AffiliateService
	PointsService       *service.PointsService
	PointsConfigService *service.PointsConfigService
	PointsAwardService  *service.PointsAwardService
	RewardService       *service.RewardService
	OrderService        *service.OrderService
}

// NewContainer 初始化容器
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
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo)
	c.PointsService = service.NewPointsService(c.PointsRepo, c.AffiliateRepo, c.UserRepo)
	c.PointsConfigService = service.NewPointsConfigService(c.PointsRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.UserRepo, c.OrderRepo, c.PointsRepo, c.SettingService)
	c.RewardService = service.NewRewardService(c.RewardRepo, c.PointsRepo, c.CouponRepo, c.PointsService)
	c.PointsAwardService = service.NewPointsAwardService(c.AffiliateRepo, c.PointsRepo, c.OrderRepo, c.AffiliateService, c.PointsService, c.SettingService)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.CouponRepo, c.CouponUsageRepo, c.CouponService, c.RewardService, c.PointsAwardService, c.QueueClient)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.AffiliateService, c.PointsAwardService, c.QueueClient)
}
