// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"
	"time"
)

// OperationType defines the supported operation types
type OperationType string

const (
	OperationCreate  OperationType = "create"  // create + fund
	OperationBuy     OperationType = "buy"
	OperationSell    OperationType = "sell"
	OperationMigrate OperationType = "migrate"
	OperationHarvest OperationType = "harvest"
)

// Task is one scripted step of a simulation.
type Task struct {
	ID         int
	TaskName   string
	WalletName string
	Operation  OperationType
	// Token - символическое имя пула (создается задачей create) или base58 mint.
	Token           string
	Curve           string  // create: proportional | power_law; пусто = из конфигурации
	AmountSol       float64 // buy: SOL to spend
	AmountTokens    float64 // sell: whole tokens to sell
	PercentToSell   float64 // sell: доля текущего баланса, если AmountTokens не задан
	SlippagePercent float64
	Repeat          int
	CreatedAt       time.Time
}

// Validate checks if the task has valid parameters
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet name cannot be empty")
	}
	if t.Token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	switch t.Operation {
	case OperationCreate, OperationMigrate, OperationHarvest:
	case OperationBuy:
		if t.AmountSol <= 0 {
			return fmt.Errorf("amount_sol must be greater than zero")
		}
	case OperationSell:
		if t.AmountTokens <= 0 && (t.PercentToSell <= 0 || t.PercentToSell > 100) {
			return fmt.Errorf("sell needs amount_tokens or percent_to_sell in (0, 100]")
		}
	default:
		return fmt.Errorf("invalid operation: %s", t.Operation)
	}

	if t.SlippagePercent < 0 || t.SlippagePercent > 100 {
		return fmt.Errorf("slippage must be between 0 and 100")
	}
	if t.Repeat < 0 {
		return fmt.Errorf("repeat cannot be negative")
	}
	return nil
}
