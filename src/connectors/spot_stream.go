package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const spotReconnectDelay = 5 * time.Second

// SpotStream keeps the latest spot close price for one symbol from the
// public miniTicker stream. Order notifications use it to report the ad's
// premium over the open market; the stream being down only means the premium
// line is omitted.
type SpotStream struct {
	url string

	mu   sync.RWMutex
	last decimal.Decimal
	seen bool
}

// NewSpotStream builds a stream for the given lowercase symbol, e.g. "usdtinr".
func NewSpotStream(streamBaseURL, symbol string) *SpotStream {
	return &SpotStream{
		url: fmt.Sprintf("%s/%s@miniTicker", streamBaseURL, symbol),
	}
}

// LastPrice returns the most recent close and whether one was ever received.
func (s *SpotStream) LastPrice() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.seen
}

// Run dials the stream and consumes ticks until the context is cancelled,
// reconnecting after a pause on any read or dial failure.
func (s *SpotStream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			logger.WithError(err).
				WithField("url", s.url).
				Warn("spot stream interrupted, will reconnect")
		}

		select {
		case <-ctx.Done():
			logger.Info("spot stream stopped")
			return
		case <-time.After(spotReconnectDelay):
		}
	}
}

func (s *SpotStream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.WithField("url", s.url).Info("spot stream connected")

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var tick struct {
			Close string `json:"c"`
		}
		if err := json.Unmarshal(payload, &tick); err != nil {
			logger.WithError(err).Debug("unparseable miniTicker payload, skipping")
			continue
		}

		price, err := decimal.NewFromString(tick.Close)
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.last = price
		s.seen = true
		s.mu.Unlock()
	}
}
