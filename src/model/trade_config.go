package model

import (
	"github.com/shopspring/decimal"
)

// ExtraFilter narrows which cached ads are eligible for matching.
// Every set predicate must hold; an unset predicate imposes no constraint.
type ExtraFilter struct {
	// MaxPrice keeps ads with price strictly below this value.
	MaxPrice *decimal.Decimal `json:"price,omitempty"`
	// MinimumLimit keeps ads whose max transaction amount covers at least this much fiat.
	MinimumLimit *decimal.Decimal `json:"minimum_limit,omitempty"`
	// MaximumLimit keeps ads whose min transaction amount does not exceed this much fiat.
	MaximumLimit *decimal.Decimal `json:"maximum_limit,omitempty"`
	// ExcludedResponseCodes drops ads whose last attempt failed with one of these codes.
	ExcludedResponseCodes []string `json:"excluded_response_codes,omitempty"`
}

// TradeConfig is the snapshot of operator intent for one execution session.
// It is immutable once handed to the scheduler. The JSON keys match the
// bot_config document stored per operator.
type TradeConfig struct {
	Asset     string `json:"ASSET"`
	Fiat      string `json:"FIAT"`
	Page      int    `json:"PAGE"`
	Rows      int    `json:"ROWS"`
	TradeType string `json:"TRADE_TYPE"`

	TotalAmountToInvest decimal.Decimal `json:"TOTAL_AMOUNT_TO_INVEST"`
	NoOfOrders          int             `json:"NO_OF_ORDERS"`

	ExtraFilter ExtraFilter `json:"EXTRA_FILTER"`

	APIKey    string `json:"API_KEY"`
	APISecret string `json:"SECRET_KEY"`
}

// DefaultTradeConfig returns the configuration a freshly registered operator
// starts with.
func DefaultTradeConfig() TradeConfig {
	maxPrice := decimal.NewFromInt(85)
	minLimit := decimal.NewFromInt(100)
	maxLimit := decimal.NewFromInt(1000)

	return TradeConfig{
		Asset:               "USDT",
		Fiat:                "INR",
		Page:                2,
		Rows:                20,
		TradeType:           TradeTypeBuy,
		TotalAmountToInvest: decimal.NewFromInt(10000),
		NoOfOrders:          1,
		ExtraFilter: ExtraFilter{
			MaxPrice:     &maxPrice,
			MinimumLimit: &minLimit,
			MaximumLimit: &maxLimit,
		},
	}
}
