package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	FetchInterval   time.Duration `envconfig:"LIST_ADS_SLEEP" default:"30s"`
	ExecuteInterval time.Duration `envconfig:"CREATE_ORDER_SLEEP" default:"20s"`
	OrderSpacing    time.Duration `envconfig:"ORDER_SPACING_SLEEP" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
