package models

// Profile carries optional public details attached one-to-one to a user.
type Profile struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	AvatarURL   string `gorm:"column:avatar_url" json:"avatar_url"`
	GitHubURL   string `gorm:"column:github_url" json:"github_url"`
	LinkedInURL string `gorm:"column:linkedin_url" json:"linkedin_url"`
	Address     string `json:"address"`
	Occupation  string `gorm:"size:120" json:"occupation"`
}
