package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"contract-intel/vars"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接并迁移表结构
// postgres dsn: "host=localhost user=postgres password=root dbname=mydb port=5432 sslmode=disable"
// sqlite dsn: 文件路径，或 ":memory:"
func InitDB(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}

	var dialector gorm.Dialector
	switch driver {
	case vars.DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case vars.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect db failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == vars.DriverSQLite {
		// sqlite 单连接，避免 :memory: 每个连接各自一个库
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&Contract{}, &Clause{}, &Risk{}, &Alert{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("db.connected", "driver", dialector.Name())
	return db, nil
}
