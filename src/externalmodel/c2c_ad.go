package externalmodel

// C2CSearchAd is one entry of the ads/search response. Only the adv block is
// interpreted; the advertiser block travels along inside the raw payload.
type C2CSearchAd struct {
	Adv C2CAdv `json:"adv"`
}

// C2CAdv carries the tradeable fields of an offer. The exchange serializes
// every numeric field as a string.
type C2CAdv struct {
	AdvNo     string `json:"advNo"`
	TradeType string `json:"tradeType"`
	Asset     string `json:"asset"`
	FiatUnit  string `json:"fiatUnit"`

	Price                  string `json:"price"`
	SurplusAmount          string `json:"surplusAmount"`
	MinSingleTransAmount   string `json:"minSingleTransAmount"`
	MaxSingleTransAmount   string `json:"maxSingleTransAmount"`
	MinSingleTransQuantity string `json:"minSingleTransQuantity"`
	MaxSingleTransQuantity string `json:"maxSingleTransQuantity"`
}
