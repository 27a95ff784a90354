package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"c2cexecutor/src/database"
	"c2cexecutor/src/model"
)

// ErrConfigKeyNotFound is returned when a nested bot_config key path does not
// exist in the stored document.
var ErrConfigKeyNotFound = errors.New("config key not found")

// UserRepository handles operator rows and their bot_config documents.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository instance using the main read/write database.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByTelegramID fetches an operator. Returns (nil, nil) when absent.
func (r *UserRepository) GetByTelegramID(
	ctx context.Context,
	telegramID int64,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// Upsert creates the operator or refreshes name and bot_config. Used by the
// register and reset flows; both write the default configuration.
func (r *UserRepository) Upsert(
	ctx context.Context,
	user *model.User,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "UserRepository",
		"op":          "Upsert",
		"telegram_id": user.TelegramID,
	}).Debug("Upserting operator")

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "bot_config"}),
	}).Create(user).Error
}

// TradeConfig decodes the operator's stored bot_config. An operator without a
// stored document gets the defaults.
func (r *UserRepository) TradeConfig(
	ctx context.Context,
	telegramID int64,
) (*model.TradeConfig, error) {

	user, err := r.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	cfg := model.DefaultTradeConfig()
	if user == nil || user.BotConfig == "" {
		return &cfg, nil
	}

	if err := json.Unmarshal([]byte(user.BotConfig), &cfg); err != nil {
		return nil, fmt.Errorf("corrupt bot_config for operator %d: %w", telegramID, err)
	}

	return &cfg, nil
}

// SaveTradeConfig replaces the operator's bot_config document.
func (r *UserRepository) SaveTradeConfig(
	ctx context.Context,
	telegramID int64,
	cfg *model.TradeConfig,
) error {

	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("bot_config", string(raw)).Error
}

// UpdateConfigKey sets one value inside the stored bot_config document.
// Nested keys use dot notation, e.g. "EXTRA_FILTER.price". The key path must
// already exist; unknown paths return ErrConfigKeyNotFound.
func (r *UserRepository) UpdateConfigKey(
	ctx context.Context,
	telegramID int64,
	key string,
	value interface{},
) error {

	user, err := r.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}
	if user == nil || user.BotConfig == "" {
		return ErrConfigKeyNotFound
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(user.BotConfig), &doc); err != nil {
		return fmt.Errorf("corrupt bot_config for operator %d: %w", telegramID, err)
	}

	section := doc
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child, ok := section[part].(map[string]interface{})
		if !ok {
			return ErrConfigKeyNotFound
		}
		section = child
	}

	last := parts[len(parts)-1]
	if _, ok := section[last]; !ok {
		return ErrConfigKeyNotFound
	}
	section[last] = value

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "UserRepository",
		"op":          "UpdateConfigKey",
		"telegram_id": telegramID,
		"key":         key,
	}).Info("Operator config key updated")

	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("bot_config", string(raw)).Error
}
