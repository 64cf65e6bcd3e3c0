package models

import "time"

// Profile is keyed by the identity provider's user id. Rows are created on
// first sign-in and completed later; they are never deleted by the app.
type Profile struct {
	ID               string    `gorm:"type:text;primaryKey" json:"id"`
	Email            string    `gorm:"size:255" json:"email,omitempty"`
	Name             string    `gorm:"size:150" json:"name"`
	Bio              *string   `gorm:"type:text" json:"bio"`
	TwinName         string    `gorm:"size:150" json:"twin_name"`
	AvatarURL        *string   `gorm:"type:text" json:"avatar_url"`
	ProfileCompleted bool      `gorm:"not null;default:false" json:"profile_completed"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// DisplayName is the name used when addressing the user in prompts.
func (p Profile) DisplayName() string {
	switch {
	case p.TwinName != "":
		return p.TwinName
	case p.Name != "":
		return p.Name
	default:
		return "User"
	}
}
