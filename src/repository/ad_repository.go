package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"c2cexecutor/src/database"
	"c2cexecutor/src/externalmodel"
	"c2cexecutor/src/model"
)

// AdRepository handles the persistent cache of marketplace offers.
type AdRepository struct {
	db *gorm.DB
}

// NewAdRepository creates a new repository instance using the main read/write database.
func NewAdRepository() *AdRepository {
	logger.WithField("component", "AdRepository").
		Info("Creating new AdRepository with MainDB")

	return &AdRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *AdRepository) WithDB(db *gorm.DB) *AdRepository {
	return &AdRepository{db: db}
}

// parseOffer turns one raw search entry into an Ad row. The untouched payload
// is kept on the row for the change comparison on later fetches.
func parseOffer(raw json.RawMessage) (*model.Ad, error) {
	var entry externalmodel.C2CSearchAd
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("malformed offer: %w", err)
	}

	adv := entry.Adv
	if adv.AdvNo == "" {
		return nil, errors.New("malformed offer: missing advNo")
	}

	ad := &model.Ad{
		AdvNo:      adv.AdvNo,
		TradeType:  adv.TradeType,
		Asset:      adv.Asset,
		FiatUnit:   adv.FiatUnit,
		RawPayload: string(raw),
	}

	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"price", adv.Price, &ad.Price},
		{"surplusAmount", adv.SurplusAmount, &ad.SurplusAmount},
		{"minSingleTransAmount", adv.MinSingleTransAmount, &ad.MinSingleTransAmount},
		{"maxSingleTransAmount", adv.MaxSingleTransAmount, &ad.MaxSingleTransAmount},
		{"minSingleTransQuantity", adv.MinSingleTransQuantity, &ad.MinSingleTransQuantity},
		{"maxSingleTransQuantity", adv.MaxSingleTransQuantity, &ad.MaxSingleTransQuantity},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return nil, fmt.Errorf("malformed offer: bad %s %q: %w", f.name, f.value, err)
		}
		*f.dst = d
	}

	return ad, nil
}

// UpsertBatch applies one fetch result to the cache as a single transaction.
// A row whose stored payload is byte-identical to the incoming one is left
// untouched, response code included. A changed payload refreshes every derived
// field and clears the response code, so the offer becomes eligible again.
// Malformed entries are skipped and counted, never fatal.
func (r *AdRepository) UpsertBatch(
	ctx context.Context,
	offers []json.RawMessage,
) (int, error) {

	logger.WithFields(map[string]interface{}{
		"repo":   "AdRepository",
		"op":     "UpsertBatch",
		"offers": len(offers),
	}).Debug("Upserting offer batch")

	skipped := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, raw := range offers {
			ad, perr := parseOffer(raw)
			if perr != nil {
				skipped++
				logger.WithFields(map[string]interface{}{
					"repo": "AdRepository",
					"op":   "UpsertBatch",
				}).WithError(perr).Warn("Skipping malformed offer")
				continue
			}

			var existing model.Ad
			err := tx.Where("adv_no = ?", ad.AdvNo).First(&existing).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(ad).Error; err != nil {
					return err
				}

			case err != nil:
				return err

			default:
				if existing.RawPayload == ad.RawPayload {
					continue
				}
				if err := tx.Model(&model.Ad{}).
					Where("id = ?", existing.ID).
					Updates(map[string]interface{}{
						"trade_type":                ad.TradeType,
						"asset":                     ad.Asset,
						"fiat_unit":                 ad.FiatUnit,
						"price":                     ad.Price,
						"surplus_amount":            ad.SurplusAmount,
						"min_single_trans_amount":   ad.MinSingleTransAmount,
						"max_single_trans_amount":   ad.MaxSingleTransAmount,
						"min_single_trans_quantity": ad.MinSingleTransQuantity,
						"max_single_trans_quantity": ad.MaxSingleTransQuantity,
						"api_response_code":         nil,
						"api_response_message":      nil,
						"raw_payload":               ad.RawPayload,
					}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "AdRepository",
			"op":   "UpsertBatch",
		}).WithError(err).Error("Failed to upsert offer batch")

		return skipped, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "AdRepository",
		"op":      "UpsertBatch",
		"offers":  len(offers),
		"skipped": skipped,
	}).Info("Offer batch upserted")

	return skipped, nil
}

// QueryMatching returns the cached ads satisfying every set predicate of the
// filter, freshest first.
func (r *AdRepository) QueryMatching(
	ctx context.Context,
	filter model.ExtraFilter,
) ([]model.Ad, error) {

	logger.WithFields(map[string]interface{}{
		"repo": "AdRepository",
		"op":   "QueryMatching",
	}).Debug("Querying matching ads")

	query := r.db.WithContext(ctx).Model(&model.Ad{})

	if filter.MaxPrice != nil {
		query = query.Where("price < ?", *filter.MaxPrice)
	}
	if filter.MinimumLimit != nil {
		query = query.Where("max_single_trans_amount >= ?", *filter.MinimumLimit)
	}
	if filter.MaximumLimit != nil {
		query = query.Where("min_single_trans_amount <= ?", *filter.MaximumLimit)
	}
	if len(filter.ExcludedResponseCodes) > 0 {
		query = query.Where(
			"api_response_code IS NULL OR api_response_code NOT IN ?",
			filter.ExcludedResponseCodes,
		)
	}

	var ads []model.Ad
	err := query.Order("created_at DESC, id DESC").Find(&ads).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "AdRepository",
			"op":   "QueryMatching",
		}).WithError(err).Error("Failed to query matching ads")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "AdRepository",
		"op":          "QueryMatching",
		"rows_return": len(ads),
	}).Info("Matching ads fetched")

	return ads, nil
}

// RecordResponse stores the outcome of a failed submission against the offer,
// leaving every other field alone. An advNo no longer present in the cache is
// a silent no-op; the offer may have rotated out of the listing meanwhile.
func (r *AdRepository) RecordResponse(
	ctx context.Context,
	advNo string,
	code string,
	message string,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "AdRepository",
		"op":     "RecordResponse",
		"adv_no": advNo,
		"code":   code,
	}).Debug("Recording order response against ad")

	// UpdateColumns: updated_at must keep reflecting payload changes only.
	result := r.db.WithContext(ctx).
		Model(&model.Ad{}).
		Where("adv_no = ?", advNo).
		UpdateColumns(map[string]interface{}{
			"api_response_code":    code,
			"api_response_message": message,
		})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "AdRepository",
			"op":     "RecordResponse",
			"adv_no": advNo,
		}).WithError(result.Error).Error("Failed to record order response")

		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":   "AdRepository",
			"op":     "RecordResponse",
			"adv_no": advNo,
		}).Info("Ad no longer cached, response dropped")
	}

	return nil
}

// Clear deletes every cached ad. Administrative use only.
func (r *AdRepository) Clear(ctx context.Context) error {

	logger.WithFields(map[string]interface{}{
		"repo": "AdRepository",
		"op":   "Clear",
	}).Warn("Clearing all cached ads")

	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.Ad{}).Error
}

// Count returns the number of cached ads. Used by the status API.
func (r *AdRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Ad{}).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
