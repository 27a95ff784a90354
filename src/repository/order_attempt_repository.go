package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"c2cexecutor/src/database"
	"c2cexecutor/src/model"
)

// OrderAttemptRepository persists the audit trail of order submissions.
type OrderAttemptRepository struct {
	db *gorm.DB
}

// NewOrderAttemptRepository creates a new repository instance using the main read/write database.
func NewOrderAttemptRepository() *OrderAttemptRepository {
	return &OrderAttemptRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *OrderAttemptRepository) WithDB(db *gorm.DB) *OrderAttemptRepository {
	return &OrderAttemptRepository{db: db}
}

// Create inserts one attempt record.
func (r *OrderAttemptRepository) Create(
	ctx context.Context,
	attempt *model.OrderAttempt,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":    "OrderAttemptRepository",
		"op":      "Create",
		"adv_no":  attempt.AdvNo,
		"status":  attempt.Status,
		"session": attempt.SessionID,
	}).Debug("Persisting order attempt")

	err := r.db.WithContext(ctx).Create(attempt).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OrderAttemptRepository",
			"op":     "Create",
			"adv_no": attempt.AdvNo,
		}).WithError(err).Error("Failed to persist order attempt")

		return err
	}

	return nil
}

// FindBySession returns every attempt of one engine run, oldest first.
func (r *OrderAttemptRepository) FindBySession(
	ctx context.Context,
	sessionID string,
) ([]model.OrderAttempt, error) {

	var attempts []model.OrderAttempt

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&attempts).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "OrderAttemptRepository",
			"op":      "FindBySession",
			"session": sessionID,
		}).WithError(err).Error("Failed to fetch order attempts")

		return nil, err
	}

	return attempts, nil
}
