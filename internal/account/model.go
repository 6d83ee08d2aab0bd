package account

import "time"

// Preferences is the per-user settings row. A user without a row gets the
// zero value.
type Preferences struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	DarkMode  bool      `gorm:"not null;default:false" json:"dark_mode"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Preferences) TableName() string { return "user" }
