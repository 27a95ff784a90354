package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade direction of an ad, from the taker's point of view.
const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)

// Ad is one cached marketplace offer, keyed by the counterparty ad number.
// RawPayload holds the offer exactly as received from the search endpoint;
// a fetched offer only touches the row when that snapshot differs.
type Ad struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AdvNo     string `gorm:"size:64;uniqueIndex;not null" json:"adv_no"`
	TradeType string `gorm:"size:10;index" json:"trade_type"`
	Asset     string `gorm:"size:20" json:"asset"`
	FiatUnit  string `gorm:"size:20" json:"fiat_unit"`

	Price                  decimal.Decimal `gorm:"type:numeric" json:"price"`
	SurplusAmount          decimal.Decimal `gorm:"type:numeric" json:"surplus_amount"`
	MinSingleTransAmount   decimal.Decimal `gorm:"type:numeric" json:"min_single_trans_amount"`
	MaxSingleTransAmount   decimal.Decimal `gorm:"type:numeric" json:"max_single_trans_amount"`
	MinSingleTransQuantity decimal.Decimal `gorm:"type:numeric" json:"min_single_trans_quantity"`
	MaxSingleTransQuantity decimal.Decimal `gorm:"type:numeric" json:"max_single_trans_quantity"`

	// Last order-attempt outcome against this offer. Nil when the offer was
	// never attempted, or when a payload change made it eligible again.
	APIResponseCode    *string `gorm:"size:50;index" json:"api_response_code,omitempty"`
	APIResponseMessage *string `gorm:"size:500" json:"api_response_message,omitempty"`

	RawPayload string `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName allows you to control the exact table name for cached ads.
func (Ad) TableName() string {
	return "ads"
}
