// internal/database/postgres.go
package database

import (
	"fmt"

	"solar-sync/internal/config"
	"solar-sync/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// 테이블 마이그레이션
	if err := db.AutoMigrate(
		&models.CleaningLog{}, // 청소 작업 이력
	); err != nil {
		return nil, err
	}

	return db, nil
}
