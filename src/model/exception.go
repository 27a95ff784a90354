package model

import "time"

// Exception represents a fault worth keeping after the logs rotate:
// fetch failures reported by the exchange, storage errors that ended a run,
// anything the notifier could not deliver.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "c2c_executor"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "fetch_loop"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "SearchAds"

	// Error information
	Message string `gorm:"type:text" json:"message"`

	// Severity level
	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Extra context stored as JSON (optional)
	Context string `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName allows you to control the exact table name for exceptions.
func (Exception) TableName() string {
	return "exceptions"
}
