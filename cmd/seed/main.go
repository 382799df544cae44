package main

import (
	"github.com/bionail-next/internal/config"
	"github.com/bionail-next/internal/constants"
	"github.com/bionail-next/internal/logger"
	"github.com/bionail-next/internal/models"
	"github.com/bionail-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seedCategories(stdLog)
	seedProducts(stdLog)
	seedPointsConfigs(stdLog)
	seedRewards(stdLog)
	seedPointsProgramSetting(stdLog)

	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	stdLog.Printf("Seed finished")
}

type stdLogger interface {
	Printf(format string, args ...interface{})
}

func seedCategories(stdLog stdLogger) {
	categories := []models.Category{
		{Slug: "bio-gel", Name: "BIO Gel System", BrandLine: "BIO Gel", SortOrder: 1},
		{Slug: "evo-oxygenating-gel", Name: "Evo Oxygenating Gel", BrandLine: "Evo", SortOrder: 2},
		{Slug: "ethos-nail-care", Name: "Ethos Nail Care", BrandLine: "Ethos", SortOrder: 3},
		{Slug: "spa-hand-foot", Name: "Spa Hand & Foot", BrandLine: "Spa", SortOrder: 4},
		{Slug: "gemini-polish", Name: "Gemini Nail Polish", BrandLine: "Gemini", SortOrder: 5},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}
}

func seedProducts(stdLog stdLogger) {
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
		return
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}

	products := []models.Product{
		{
			CategoryID:  categoryIDs["bio-gel"],
			Slug:        "bio-gel-clear-base",
			Name:        "BIO Gel Clear Base Gel",
			Description: "Flexible soak-off base gel that protects the natural nail while it grows.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(34.50)),
			Tags:        models.StringArray([]string{"gel", "base"}),
			IsActive:    true,
			SortOrder:   1,
		},
		{
			CategoryID:  categoryIDs["bio-gel"],
			Slug:        "bio-gel-sculpting-kit",
			Name:        "BIO Gel Sculpting Starter Kit",
			Description: "Everything needed for a first sculpted gel set, including base, builder and gloss gels.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(129.00)),
			Tags:        models.StringArray([]string{"gel", "kit", "starter"}),
			IsActive:    true,
			SortOrder:   2,
		},
		{
			CategoryID:  categoryIDs["evo-oxygenating-gel"],
			Slug:        "evo-oxygenating-base",
			Name:        "Evo Oxygenating Base",
			Description: "Oxygenating gel base infused with vitamins A and E for healthier nails.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(39.90)),
			Tags:        models.StringArray([]string{"evo", "base"}),
			IsActive:    true,
			SortOrder:   1,
		},
		{
			CategoryID:  categoryIDs["ethos-nail-care"],
			Slug:        "ethos-cuticle-oil",
			Name:        "Ethos Nourishing Cuticle Oil",
			Description: "Daily conditioning oil with jojoba and lavender for cuticle repair.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(18.50)),
			Tags:        models.StringArray([]string{"care", "oil"}),
			IsActive:    true,
			SortOrder:   1,
		},
		{
			CategoryID:  categoryIDs["ethos-nail-care"],
			Slug:        "ethos-executive-base",
			Name:        "Ethos Executive Strengthening Base",
			Description: "Strengthening treatment base coat for weak and damaged nails.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(22.00)),
			Tags:        models.StringArray([]string{"care", "treatment"}),
			IsActive:    true,
			SortOrder:   2,
		},
		{
			CategoryID:  categoryIDs["spa-hand-foot"],
			Slug:        "spa-heel-balm",
			Name:        "Spa Intensive Heel Balm",
			Description: "Rich repair balm for dry and cracked heels.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(24.90)),
			Tags:        models.StringArray([]string{"spa", "foot"}),
			IsActive:    true,
			SortOrder:   1,
		},
		{
			CategoryID:  categoryIDs["gemini-polish"],
			Slug:        "gemini-no14-french-pink",
			Name:        "Gemini No.14 French Pink",
			Description: "Classic sheer pink nail polish from the Gemini colour range.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(14.50)),
			Tags:        models.StringArray([]string{"polish", "french"}),
			IsActive:    true,
			SortOrder:   1,
		},
	}

	for _, product := range products {
		if product.CategoryID == 0 {
			stdLog.Printf("Skipping product %s: category missing", product.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}
}

func seedPointsConfigs(stdLog stdLogger) {
	configs := []models.PointsConfig{
		{
			ActionType:   constants.PointsActionReferralSignup,
			PointsAmount: 100,
			IsActive:     true,
		},
		{
			ActionType:       constants.PointsActionReferralFirstOrder,
			TieredConfigJSON: `[{"min_value":"0","max_value":"50","points":200},{"min_value":"50","max_value":"100","points":400},{"min_value":"100","points":800}]`,
			IsActive:         true,
		},
		{
			ActionType:   constants.PointsActionReferralRepeatOrder,
			PointsAmount: 100,
			IsActive:     true,
		},
		{
			ActionType:       constants.PointsActionOwnPurchase,
			TieredConfigJSON: `[{"min_value":"0","max_value":"50","points":10},{"min_value":"50","max_value":"100","points":25},{"min_value":"100","points":60}]`,
			IsActive:         true,
		},
	}

	for _, config := range configs {
		var count int64
		models.DB.Model(&models.PointsConfig{}).Where("action_type = ?", config.ActionType).Count(&count)
		if count > 0 {
			stdLog.Printf("Points config already exists: %s", config.ActionType)
			continue
		}
		if err := models.DB.Create(&config).Error; err != nil {
			stdLog.Printf("Failed to create points config %s: %v", config.ActionType, err)
		} else {
			stdLog.Printf("Created points config: %s", config.ActionType)
		}
	}
}

func seedRewards(stdLog stdLogger) {
	rewards := []models.Reward{
		{
			Name:          "5 EUR off your next order",
			Description:   "Fixed discount voucher for any order.",
			PointsCost:    500,
			DiscountType:  constants.RewardDiscountFixed,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			ValidityDays:  60,
			IsActive:      true,
			SortOrder:     1,
		},
		{
			Name:          "10% off orders over 50 EUR",
			Description:   "Percentage discount voucher, capped at 20 EUR.",
			PointsCost:    900,
			DiscountType:  constants.RewardDiscountPercent,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			MinPurchase:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
			MaxDiscount:   models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			ValidityDays:  30,
			IsActive:      true,
			SortOrder:     2,
		},
		{
			Name:          "20 EUR off orders over 100 EUR",
			Description:   "Fixed discount voucher for larger orders.",
			PointsCost:    1800,
			DiscountType:  constants.RewardDiscountFixed,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			MinPurchase:   models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			ValidityDays:  30,
			IsActive:      true,
			SortOrder:     3,
		},
	}

	for _, reward := range rewards {
		var count int64
		models.DB.Model(&models.Reward{}).Where("name = ?", reward.Name).Count(&count)
		if count > 0 {
			stdLog.Printf("Reward already exists: %s", reward.Name)
			continue
		}
		if err := models.DB.Create(&reward).Error; err != nil {
			stdLog.Printf("Failed to create reward %s: %v", reward.Name, err)
		} else {
			stdLog.Printf("Created reward: %s", reward.Name)
		}
	}
}

func seedPointsProgramSetting(stdLog stdLogger) {
	var count int64
	models.DB.Model(&models.Setting{}).Where("key = ?", constants.SettingKeyPointsProgram).Count(&count)
	if count > 0 {
		stdLog.Printf("Points program setting already exists")
		return
	}
	setting := models.Setting{
		Key:       constants.SettingKeyPointsProgram,
		ValueJSON: models.JSON(service.PointsProgramSettingToMap(service.PointsProgramDefaultSetting())),
	}
	if err := models.DB.Create(&setting).Error; err != nil {
		stdLog.Printf("Failed to create points program setting: %v", err)
	} else {
		stdLog.Printf("Created points program setting")
	}
}
