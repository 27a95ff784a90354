package engine

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// OperatorID is the Telegram user whose stored bot_config drives the run.
	OperatorID       int64 `envconfig:"ALLOWED_USER"`
	EnableSpotStream bool  `envconfig:"ENABLE_SPOT_STREAM" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
