package database

import (
	"fmt"
	"log"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitMySQL opens the MySQL connection, configures the pool and migrates
// the wallet tables.
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to MySQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get underlying DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}

	log.Println("MySQL connected")
	return db
}

// AutoMigrate creates or updates the wallet tables. Shared with the test
// suites, which run it against an in-memory database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Account{},
		&model.LedgerEntry{},
		&model.OutboxMessage{},
	)
}
