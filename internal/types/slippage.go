// internal/types/slippage.go
package types

import "math"

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed использует фиксированное значение minAmountOut
	SlippageFixed SlippageType = "fixed"
	// SlippagePercent использует процент от ожидаемого выхода
	SlippagePercent SlippageType = "percent"
	// SlippageNone не ограничивает выход
	SlippageNone SlippageType = "none"
)

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	Type SlippageType `yaml:"type" json:"type"`
	// Value: для fixed - точное minAmountOut, для percent - допустимый процент (1.0 = 1%)
	Value float64 `yaml:"value" json:"value"`
}

// CalculateMinAmountOut вычисляет minAmountOut из котировки с учетом политики.
// Результат округляется вниз, чтобы котировка без движения цены всегда проходила проверку.
func CalculateMinAmountOut(expected uint64, cfg SlippageConfig) uint64 {
	switch cfg.Type {
	case SlippageFixed:
		if cfg.Value <= 0 {
			return 0
		}
		return uint64(cfg.Value)
	case SlippagePercent:
		pct := math.Min(math.Max(cfg.Value, 0), 100)
		return uint64(math.Floor(float64(expected) * (1.0 - pct/100.0)))
	default:
		return 0
	}
}
