package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL       string `envconfig:"BINANCE_BASE_URL" default:"https://api.binance.com"`
	SpotStreamURL string `envconfig:"BINANCE_SPOT_STREAM_URL" default:"wss://stream.binance.com:9443/ws"`
	SpotSymbol    string `envconfig:"SPOT_REFERENCE_SYMBOL" default:"usdtinr"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
