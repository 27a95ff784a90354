package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpotKline is one spot-market candle kept as the reference price series for
// premium reporting against C2C offers.
type SpotKline struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_spot_klines_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_spot_klines_symbol_datetime,priority:2;index:idx_spot_klines_datetime"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

// TableName allows you to control the exact table name for spot candles.
func (SpotKline) TableName() string {
	return "spot_klines"
}
