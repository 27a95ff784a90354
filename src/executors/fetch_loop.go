package executors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"c2cexecutor/src/connectors"
	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
)

type marketSearcher interface {
	SearchAds(ctx context.Context, asset, fiat string, page, rows int, tradeType string) ([]json.RawMessage, int, error)
}

type adWriter interface {
	UpsertBatch(ctx context.Context, offers []json.RawMessage) (int, error)
}

type notifier interface {
	Notify(ctx context.Context, kind notify.Kind, text string, structuredContext interface{}) error
}

// AdFetcher is the periodic task keeping the ad cache warm. A search failure
// is alerted and waited out; only cancellation or a storage failure ends the
// loop.
type AdFetcher struct {
	client   marketSearcher
	ads      adWriter
	notifier notifier
	session  func() *model.TradeConfig
	interval time.Duration
	onCycle  func(time.Time)
}

// Run executes fetch cycles until the context is cancelled. A non-nil return
// means the backing store failed and the whole run must stop.
func (f *AdFetcher) Run(ctx context.Context) error {
	if err := f.fetchOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("fetch loop stopped")
			return nil

		case <-ticker.C:
			if ctx.Err() != nil {
				logger.Info("fetch loop stopped")
				return nil
			}
			if err := f.fetchOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (f *AdFetcher) fetchOnce(ctx context.Context) error {
	defer func() {
		if f.onCycle != nil {
			f.onCycle(time.Now())
		}
	}()

	cfg := f.session()

	offers, total, err := f.client.SearchAds(
		ctx, cfg.Asset, cfg.Fiat, cfg.Page, cfg.Rows, cfg.TradeType,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		var apiErr *connectors.APIError
		if errors.As(err, &apiErr) {
			logger.WithFields(map[string]interface{}{
				"code":    apiErr.Code,
				"message": apiErr.Message,
			}).Error("ad search returned an error payload")

			f.alert(ctx, fmt.Sprintf("Something went wrong while fetching ads.\nCODE: %s\nERROR: %s",
				apiErr.Code, apiErr.Message))
			return nil
		}

		logger.WithError(err).Error("ad search call failed")
		f.alert(ctx, fmt.Sprintf("Ad search call failed: %v", err))
		return nil
	}

	skipped, err := f.ads.UpsertBatch(ctx, offers)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ad cache write failed: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"fetched": len(offers),
		"total":   total,
		"skipped": skipped,
	}).Info("fetch cycle completed")

	return nil
}

func (f *AdFetcher) alert(ctx context.Context, text string) {
	if err := f.notifier.Notify(ctx, notify.KindAlert, text, nil); err != nil {
		logger.WithError(err).Warn("could not deliver fetch alert")
	}
}
