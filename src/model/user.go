package model

import "time"

// User is an operator allowed to drive the engine. BotConfig holds the
// operator's TradeConfig document as JSON; credentials inside it are
// encrypted at rest (see src/security).
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FirstName  string `gorm:"size:100" json:"first_name"`
	LastName   string `gorm:"size:100" json:"last_name"`

	BotConfig string `gorm:"type:jsonb" json:"bot_config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName allows you to control the exact table name for operators.
func (User) TableName() string {
	return "users"
}
