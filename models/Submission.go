package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission statuses. Any status is reachable from any other via the admin
// patch endpoint; nothing transitions automatically.
const (
	StatusPending       = "pending"
	StatusApproved      = "approved"
	StatusNeedsRevision = "needs_revision"
	StatusRejected      = "rejected"
)

var SubmissionStatuses = []string{StatusPending, StatusApproved, StatusNeedsRevision, StatusRejected}

type Submission struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProfileID    string    `json:"user_id" gorm:"type:uuid;not null;index"`
	Profile      Profile   `json:"profiles" gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	OriginalName string    `json:"original_name" gorm:"size:255;not null"`
	FileURL      string    `json:"file_url" gorm:"type:text;not null"` // signed URL, or raw object key if signing failed
	ObjectKey    string    `json:"-" gorm:"size:512;not null"`
	MimeType     string    `json:"mime_type" gorm:"size:128"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status" gorm:"type:varchar(20);default:pending;index;check:status IN ('pending','approved','needs_revision','rejected')"`
	Score        *float64  `json:"score" gorm:"type:numeric(5,2);check:score >= 0 AND score <= 100"`
	AdminNotes   *string   `json:"admin_notes" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Submission) TableName() string { return "submissions" }

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
