// internal/storage/models/candle.go
package models

// Candle is one closed 30-second OHLC bucket.
type Candle struct {
	BaseModel
	Token  string  `gorm:"uniqueIndex:idx_candle_token_time;not null;type:varchar(44)"`
	Time   int64   `gorm:"uniqueIndex:idx_candle_token_time;not null"`
	Open   float64 `gorm:"type:double precision"`
	High   float64 `gorm:"type:double precision"`
	Low    float64 `gorm:"type:double precision"`
	Close  float64 `gorm:"type:double precision"`
	Volume uint64  `gorm:"type:numeric(20,0)"`
	Trades int
}
