package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase connects to MySQL or PostgreSQL according to DBDriver and migrates modelDefs.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()
	dialector, err := Dialector(cfg)
	if err != nil {
		log.Fatalf("failed to build database dialector: %v", err)
	}

	// Derive GORM log level from the app level and raise the slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// Ping at boot so network/auth problems surface before the first query
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if len(modelDefs) > 0 {
		if err := db.AutoMigrate(modelDefs...); err != nil {
			log.Fatalf("auto migration failed: %v", err)
		}
	}

	return db
}

// Dialector returns the GORM dialector for the configured driver.
func Dialector(cfg AppConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case "", "mysql":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		}
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
				cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.Location().String())
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}

// Health pings the database and reports pool statistics.
func Health(gdb *gorm.DB) map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := make(map[string]string)
	sqlDB, err := gdb.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := sqlDB.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	return stats
}
