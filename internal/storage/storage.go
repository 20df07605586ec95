// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
)

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Сделки
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.Trade, error)

	// Свечи
	SaveCandle(ctx context.Context, candle *models.Candle) error
	ListCandles(ctx context.Context, token string, from, to int64) ([]*models.Candle, error)

	// Задачи
	SaveTaskHistory(ctx context.Context, history *models.TaskHistory) error

	// Миграции схемы
	RunMigrations() error
}
