package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is the per-identity record. Its ID is the identity gateway's
// subject id, so there is exactly one row per authenticated identity.
type Profile struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email" gorm:"not null;index"`
	FullName  *string   `json:"full_name"`
	Role      string    `json:"role" gorm:"type:varchar(20);default:user;index;check:role IN ('user','admin')"` // user, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
