package spotprice

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"

	"c2cexecutor/src/model"
)

const (
	Duration1m = "1m"
	Duration1h = "1h"
)

// SpotPrice pulls spot candles for the reference pair and persists them. The
// series backs premium analytics over the C2C prices the engine trades at.
type SpotPrice struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (s *SpotPrice) Start() error {
	s.Config = GetConfig()

	s.exchange = s.newBinanceInstance()

	return s.aggregateAndSave()
}

func (*SpotPrice) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (s *SpotPrice) aggregateAndSave() error {
	series, err := s.fetchKlineSeries()
	if err != nil {
		return err
	}

	for i := range series {
		result := series[i]

		candle := &model.SpotKline{
			Datetime: time.Unix(result.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(result.Open),
			High:     decimal.NewFromFloat(result.High),
			Low:      decimal.NewFromFloat(result.Low),
			Close:    decimal.NewFromFloat(result.Close),
			Volume:   decimal.NewFromFloat(result.Vol),
			Symbol:   result.Pair.String(),
		}

		// Upsert: on conflict on (symbol, datetime) do update
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).Create(candle).Error; err != nil {
			s.Log.WithError(err).Error("aggregateAndSave, Create, ")
			return err
		}
	}

	s.Log.WithFields(logger.Fields{
		"Symbol":  s.Config.Symbol,
		"Candles": len(series),
	}).Info("Spot kline data inserted or updated in database")

	return nil
}

func (s *SpotPrice) fetchKlineSeries() ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(
		goex.Currency{Symbol: s.Config.Symbol},
		goex.Currency{Symbol: s.Config.Quote},
	)

	klines, err := s.exchange.GetKlineRecords(
		targetSymbol,
		s.parseDurationToGoex(),
		s.Config.Limit,
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}

func (s *SpotPrice) parseDurationToGoex() goex.KlinePeriod {
	var duration goex.KlinePeriod
	switch s.Config.DurationStr {
	case Duration1m:
		duration = goex.KLINE_PERIOD_1MIN
	case Duration1h:
		duration = goex.KLINE_PERIOD_1H
	default:
		panic("invalid DURATION env var")
	}
	return duration
}
