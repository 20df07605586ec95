// internal/storage/models/pool.go
package models

// PoolAccount хранит снимок пула: borsh-данные аккаунта плюс денормализованные
// колонки для запросов.
type PoolAccount struct {
	BaseModel
	Token        string `gorm:"uniqueIndex;not null;type:varchar(44)"`
	Creator      string `gorm:"index;not null;type:varchar(44)"`
	Curve        string `gorm:"not null;type:varchar(20)"`
	State        string `gorm:"index;not null;type:varchar(20)"`
	Stage        string `gorm:"not null;type:varchar(20)"`
	ReserveBase  uint64 `gorm:"type:numeric(20,0);not null"`
	ReserveToken uint64 `gorm:"type:numeric(20,0);not null"`
	TotalSupply  uint64 `gorm:"type:numeric(20,0);not null"`
	Data         []byte `gorm:"type:bytea;not null"`
}
