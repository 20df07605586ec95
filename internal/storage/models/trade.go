// internal/storage/models/trade.go
package models

import "time"

type Trade struct {
	BaseModel
	TradeID     string    `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Token       string    `gorm:"index;not null;type:varchar(44)"`
	Wallet      string    `gorm:"index;not null;type:varchar(44)"`
	Side        string    `gorm:"not null;type:varchar(4)"`
	BaseAmount  uint64    `gorm:"type:numeric(20,0);not null"`
	TokenAmount uint64    `gorm:"type:numeric(20,0);not null"`
	PlatformFee uint64    `gorm:"type:numeric(20,0);not null"`
	CreatorFee  uint64    `gorm:"type:numeric(20,0);not null"`
	Price       float64   `gorm:"type:double precision"`
	ExecutedAt  time.Time `gorm:"index;not null"`
}
