package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	gormzap "github.com/fatflowers/courseshop/pkg/gormlog"
)

// NewDB opens the postgres pool and verifies it answers before the
// application starts serving.
func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	dbc := cfg.Database
	if dbc.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(dbc.DSN), &gorm.Config{
		Logger: gormzap.New(l, gormzap.LevelFor(cfg.LogLevel), dbc.SlowQuery),
	})
	if err != nil {
		l.Errorw("failed to connect database", "err", err)
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbc.MaxOpenConns)
	}
	if dbc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbc.MaxIdleConns)
	}
	if dbc.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbc.ConnMaxLifetime)
	}
	l.Infow("connected to postgres", "max_open_conns", dbc.MaxOpenConns, "max_idle_conns", dbc.MaxIdleConns)
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// Models lists every table owned or read by this service, in migration order.
func Models() []any {
	return []any{
		&models.Tenant{},
		&models.User{},
		&models.Course{},
		&models.Payment{},
		&models.PaymentItem{},
		&models.CartItem{},
		&models.Enrollment{},
		&models.SubscriptionHistory{},
		&models.WebhookDeliveryLog{},
	}
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
