package main

import (
	"fmt"
	"os"
	"time"

	"fieldbooking/internal/config"
	"fieldbooking/internal/database"
	"fieldbooking/internal/domain"
	"fieldbooking/internal/pkg/jwt"
	"fieldbooking/internal/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	demoCustomerID = 1
	demoOwnerID    = 100
	demoAdminID    = 900
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db connection failed", zap.Error(err))
	}
	log.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	var existing int64
	if err := db.Model(&domain.Facility{}).Count(&existing).Error; err != nil {
		log.Fatal("count facilities", zap.Error(err))
	}
	if existing > 0 {
		log.Info("facilities already present, skipping catalog seed", zap.Int64("facilities", existing))
	} else if err := db.Transaction(seedCatalog); err != nil {
		log.Fatal("seed catalog", zap.Error(err))
	} else {
		log.Info("catalog seeded")
	}

	if err := seedPromotions(db); err != nil {
		log.Fatal("seed promotions", zap.Error(err))
	}
	log.Info("promotions upserted")

	tokens := jwt.New(cfg.JWTSecret, 30*24*time.Hour)
	for _, acct := range []struct {
		id   int64
		role domain.Role
	}{
		{demoCustomerID, domain.RoleCustomer},
		{demoOwnerID, domain.RoleFacilityOwner},
		{demoAdminID, domain.RoleAdmin},
	} {
		token, err := tokens.GenerateToken(acct.id, string(acct.role))
		if err != nil {
			log.Fatal("generate token", zap.Error(err))
		}
		log.Info("demo token", zap.Int64("user_id", acct.id), zap.String("role", string(acct.role)), zap.String("token", token))
	}
	log.Info("seed completed")
}

func seedCatalog(tx *gorm.DB) error {
	facilities := []domain.Facility{
		{OwnerID: demoOwnerID, Name: "Riverside Sports Center", Address: "12 Nguyen Hue, District 1", IsActive: true},
		{OwnerID: demoOwnerID, Name: "Thao Dien Arena", Address: "45 Xuan Thuy, Thu Duc", IsActive: true},
	}
	if err := tx.Create(&facilities).Error; err != nil {
		return err
	}

	weekdays := domain.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	weekend := domain.NewWeekdaySet(time.Saturday, time.Sunday)

	for i, f := range facilities {
		services := []domain.FacilityService{
			{FacilityID: f.ID, Name: "Water bottle", Unit: "bottle", Price: 10_000, IsActive: true},
			{FacilityID: f.ID, Name: "Ball rental", Unit: "ball", Price: 30_000, IsActive: true},
			{FacilityID: f.ID, Name: "Referee", Unit: "match", Price: 150_000, IsActive: true},
		}
		if err := tx.Create(&services).Error; err != nil {
			return err
		}

		for j := 1; j <= 3; j++ {
			sport := "football"
			if j == 3 {
				sport = "badminton"
			}
			sf := domain.SubField{
				FacilityID:   f.ID,
				Name:         fmt.Sprintf("Field %c%d", 'A'+i, j),
				SportType:    sport,
				OpenTime:     domain.NewClock(6, 0),
				CloseTime:    domain.NewClock(22, 0),
				DefaultPrice: 200_000,
				IsActive:     true,
			}
			if sport == "badminton" {
				sf.DefaultPrice = 80_000
			}
			if err := tx.Create(&sf).Error; err != nil {
				return err
			}

			rules := []domain.PricingRule{
				{
					SubFieldID: sf.ID,
					Weekdays:   weekdays,
					Ranges: []domain.PricingRange{
						{StartTime: domain.NewClock(6, 0), EndTime: domain.NewClock(17, 0), Price: sf.DefaultPrice},
						{StartTime: domain.NewClock(17, 0), EndTime: domain.NewClock(22, 0), Price: sf.DefaultPrice * 3 / 2},
					},
				},
				{
					SubFieldID: sf.ID,
					Weekdays:   weekend,
					Ranges: []domain.PricingRange{
						{StartTime: domain.NewClock(6, 0), EndTime: domain.NewClock(22, 0), Price: sf.DefaultPrice * 3 / 2},
					},
				},
			}
			if err := tx.Create(&rules).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPromotions(db *gorm.DB) error {
	now := time.Now().UTC()
	maxDiscount := int64(100_000)
	limit := 500
	promos := []domain.Promotion{
		{
			Code:              "SUMMER10",
			Description:       "10% off, up to 100k per booking",
			DiscountType:      domain.DiscountPercentage,
			DiscountValue:     10,
			MinBookingValue:   100_000,
			MaxDiscountAmount: &maxDiscount,
			StartDate:         now.AddDate(0, 0, -1),
			EndDate:           now.AddDate(0, 3, 0),
			UsageLimit:        &limit,
			IsActive:          true,
		},
		{
			Code:            "WELCOME50K",
			Description:     "50k off bookings from 300k",
			DiscountType:    domain.DiscountFixed,
			DiscountValue:   50_000,
			MinBookingValue: 300_000,
			StartDate:       now.AddDate(0, 0, -1),
			EndDate:         now.AddDate(1, 0, 0),
			IsActive:        true,
		},
	}
	// Re-running the seed refreshes the window and terms but keeps usage_count.
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "discount_type", "discount_value", "min_booking_value",
			"max_discount_amount", "start_date", "end_date", "usage_limit", "is_active", "updated_at",
		}),
	}).Create(&promos).Error
}
