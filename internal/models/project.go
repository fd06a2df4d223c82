package models

import "time"

// Project groups tasks under a manager, with an optional client account.
type Project struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	ManagerID string `gorm:"type:uuid;not null;index" json:"manager_id"`
	Manager   *User  `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`

	ClientID *string `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client   *User   `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`

	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
