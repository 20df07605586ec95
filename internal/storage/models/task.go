// internal/storage/models/task.go
package models

import "time"

// TaskHistory - итог выполнения одной задачи симуляции.
type TaskHistory struct {
	BaseModel
	TaskName     string `gorm:"index;not null;type:varchar(100)"`
	Operation    string `gorm:"not null;type:varchar(20)"`
	Token        string `gorm:"index;type:varchar(44)"`
	Status       string `gorm:"not null;type:varchar(20)"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	SuccessCount int    `gorm:"default:0"`
	ErrorCount   int    `gorm:"default:0"`
	TotalVolume  uint64 `gorm:"type:numeric(20,0);default:0"`
	LastError    string `gorm:"type:text"`
}
