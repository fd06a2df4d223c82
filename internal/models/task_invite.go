package models

import "time"

// TaskInvite is a durable record of an outstanding email invitation. The token is
// generated once at creation and never changes; the row transitions exactly once
// from active to accepted.
type TaskInvite struct {
	BaseModel

	Email string `gorm:"not null;index:idx_task_invites_email_active" json:"email"`
	Token string `gorm:"uniqueIndex;not null" json:"-"`

	InviterID string `gorm:"type:uuid;not null;index" json:"inviter_id"`
	Inviter   *User  `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`

	ProjectID *string  `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL" json:"project,omitempty"`

	Active     bool       `gorm:"not null;default:true;index:idx_task_invites_email_active" json:"active"`
	AcceptedAt *time.Time `json:"accepted_at"`
}
