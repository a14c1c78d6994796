package models

import (
	"time"
)

type AuditLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	AdminProfileID string    `json:"adminProfileID" gorm:"type:uuid;index;not null"`
	Action         string    `json:"action" gorm:"size:64;index"`
	ResourceType   string    `json:"resourceType" gorm:"size:64;index"`
	ResourceID     string    `json:"resourceID" gorm:"size:64;index"`
	BeforeJSON     string    `json:"beforeJSON" gorm:"type:text"`
	AfterJSON      string    `json:"afterJSON" gorm:"type:text"`
	IPAddress      string    `json:"ipAddress" gorm:"size:64"`
	CreatedAt      time.Time `json:"createdAt"`
}
