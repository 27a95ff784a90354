package spotprice

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DurationStr string `envconfig:"DURATION" default:"1h"`
	Symbol      string `envconfig:"SYMBOL" default:"USDT"`
	Quote       string `envconfig:"QUOTE" default:"TRY"`
	Limit       int    `envconfig:"LIMIT" default:"500"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
