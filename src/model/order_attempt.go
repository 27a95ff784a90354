package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderAttemptStatus constants represent the conclusion of one submission
// against the order-match endpoint.
const (
	OrderAttemptStatusPlaced   = "placed"
	OrderAttemptStatusRejected = "rejected"
	OrderAttemptStatusError    = "error"
)

// OrderAttempt stores one submission against a cached ad, successful or not,
// for auditing and replay.
type OrderAttempt struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// SessionID groups attempts belonging to one engine run.
	SessionID string `gorm:"size:36;index" json:"session_id"`

	AdvNo     string `gorm:"size:64;index" json:"adv_no"`
	Asset     string `gorm:"size:20" json:"asset"`
	FiatUnit  string `gorm:"size:20" json:"fiat_unit"`
	TradeType string `gorm:"size:10" json:"trade_type"`

	Amount     decimal.Decimal `gorm:"type:numeric" json:"amount"`
	MatchPrice decimal.Decimal `gorm:"type:numeric" json:"match_price"`

	Status string `gorm:"size:20;not null" json:"status"` // see OrderAttemptStatus* constants

	// OrderNumber is set when the exchange accepted the order.
	OrderNumber string `gorm:"size:64" json:"order_number,omitempty"`

	ErrorCode    string `gorm:"size:50" json:"error_code,omitempty"`
	ErrorMessage string `gorm:"size:500" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName allows you to control the exact table name for order attempts.
func (OrderAttempt) TableName() string {
	return "order_attempts"
}
