// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curve-launchpad/internal/storage"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
)

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

// newGormLogger создает новый логгер для GORM
func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

// LogMode реализация интерфейса logger.Interface
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info реализация интерфейса logger.Interface
func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

// Warn реализация интерфейса logger.Interface
func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

// Error реализация интерфейса logger.Interface
func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace реализация интерфейса logger.Interface
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Debug("trace", fields...)
	}
}

// Storage реализует storage.Storage поверх gorm/postgres
type Storage struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ storage.Storage = (*Storage)(nil)

// NewStorage открывает соединение по DSN.
func NewStorage(dsn string, zapLogger *zap.Logger) (*Storage, error) {
	return Open(postgres.Open(dsn), zapLogger)
}

// Open принимает готовый диалектор; NewStorage использует драйвер postgres.
func Open(dialector gorm.Dialector, zapLogger *zap.Logger) (*Storage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Storage{
		db:     db,
		logger: zapLogger.Named("postgres"),
	}, nil
}

// Close закрывает пул соединений.
func (p *Storage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunMigrations выполняет AutoMigrate под advisory lock
func (p *Storage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(101)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(101)")

	err = p.db.AutoMigrate(
		&models.PoolAccount{},
		&models.Trade{},
		&models.Candle{},
		&models.TaskHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveTrade вставляет сделку; повторная запись того же trade_id игнорируется.
func (p *Storage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
		Create(trade).Error
}

func (p *Storage) ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := p.db.WithContext(ctx).
		Where("token = ?", token).
		Order("executed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

// SaveCandle делает upsert по (token, time).
func (p *Storage) SaveCandle(ctx context.Context, candle *models.Candle) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}, {Name: "time"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "trades", "updated_at"}),
		}).
		Create(candle).Error
}

func (p *Storage) ListCandles(ctx context.Context, token string, from, to int64) ([]*models.Candle, error) {
	var candles []*models.Candle
	err := p.db.WithContext(ctx).
		Where("token = ? AND time >= ? AND time <= ?", token, from, to).
		Order("time asc").
		Find(&candles).Error
	return candles, err
}

func (p *Storage) SaveTaskHistory(ctx context.Context, history *models.TaskHistory) error {
	return p.db.WithContext(ctx).Create(history).Error
}
