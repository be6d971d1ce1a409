package db

import (
	"time" // Connection pool lifetimes

	"github.com/shopspring/decimal" // Fixed-point money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/driver/mysql"          // MySQL driver for GORM
	"gorm.io/gorm"                  // GORM ORM library
	"gorm.io/gorm/clause"           // Upsert clauses
	"gorm.io/gorm/logger"           // GORM logger

	"reward_ledger/internal/domain" // Importing domain models
)

// Open connects to MySQL and sizes the connection pool
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn), // Only slow queries and errors
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)                  // Upper bound on concurrent units of work
	sqlDB.SetMaxIdleConns(10)                  // Keep warm connections
	sqlDB.SetConnMaxLifetime(30 * time.Minute) // Recycle before server timeouts
	return db, nil
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.User{}, &domain.Task{}, &domain.TaskCompletion{}, &domain.Transaction{}); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// DefaultTasks is the starter catalogue installed by SeedTasks
var DefaultTasks = []domain.Task{
	{Name: "Daily check-in", Reward: decimal.NewFromInt(1), CooldownSeconds: 86400, Enabled: true},
	{Name: "Watch a video", Reward: decimal.RequireFromString("0.5"), CooldownSeconds: 3600, Enabled: true},
	{Name: "Solve a captcha", Reward: decimal.RequireFromString("0.1"), CooldownSeconds: 300, Enabled: true},
}

// SeedTasks inserts tasks whose name is not present yet and reports how many were written
func SeedTasks(db *gorm.DB, tasks []domain.Task) (int64, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	rows := make([]domain.Task, len(tasks)) // Keep the caller's slice untouched
	copy(rows, tasks)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows) // Existing names win
	if res.Error != nil {
		return 0, res.Error
	}
	logrus.WithField("count", res.RowsAffected).Info("Tasks seeded")
	return res.RowsAffected, nil
}
