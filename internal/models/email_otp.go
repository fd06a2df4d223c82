package models

import "time"

// EmailOTP stores the latest one-time code issued to a user for email
// verification or password reset. One row per user, upserted on reissue.
type EmailOTP struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Code      string    `gorm:"size:6;not null" json:"-"`
	Verified  bool      `gorm:"default:false" json:"verified"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
