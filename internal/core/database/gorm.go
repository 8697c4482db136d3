package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"

	zlog "arzaquna-api/internal/core/logger"
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	SlowThreshold      time.Duration
	Logger             *zap.Logger // 为空则用 gorm 默认 stdout
}

var (
	ErrUnsupportedDriver = fmt.Errorf("database: unsupported driver: %w", gorm.ErrInvalidDB)
	ErrEmptyDSN          = errors.New("database: dsn is empty")
)

func dialector(o Opts) (gorm.Dialector, error) {
	switch o.Driver {
	case "postgres":
		if strings.TrimSpace(o.DSN) == "" {
			return nil, ErrEmptyDSN
		}
		return postgres.Open(o.DSN), nil
	case "mysql":
		cfg, err := mysqlConfig(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		if o.Logger != nil {
			o.Logger.Info("mysql dsn", zap.String("dsn", maskedDSN(cfg)))
		}
		return mysql.New(mysql.Config{DSN: cfg.FormatDSN(), DSNConfig: cfg}), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

func NewGorm(o Opts) (*gorm.DB, error) {
	dial, err := dialector(o)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         gormLogger(o, gormLevel(o.LogLevel)),
		TranslateError: true, // 唯一键冲突 -> gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	if o.ConnMaxLifetimeMin > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	}

	// 写操作需要原子性的地方（申请审核、下单）显式开 Transaction
	return db.Session(&gorm.Session{
		PrepareStmt:            true,
		CreateBatchSize:        200,
		SkipDefaultTransaction: true,
	}), nil
}

func gormLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func gormLogger(o Opts, lvl logger.LogLevel) logger.Interface {
	if o.Logger == nil {
		return logger.Default.LogMode(lvl)
	}
	std, err := zlog.ToStdLogger(o.Logger.With(zap.String("component", "gorm")), zapcore.InfoLevel)
	if err != nil {
		return logger.Default.LogMode(lvl)
	}
	slow := o.SlowThreshold
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return logger.New(std, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate 建表/补列，启动时按配置执行
func Migrate(ctx context.Context, db *gorm.DB, models ...any) error {
	return db.WithContext(ctx).AutoMigrate(models...)
}
