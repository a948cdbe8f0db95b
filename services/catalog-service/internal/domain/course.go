package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Course is created by the generation pipeline and listed only once IsReady is true.
// SavedCount and CompletedCount are maintained by the collection repository.
type Course struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Topic          string     `gorm:"not null;index" json:"topic"`
	Description    *string    `json:"description"`
	IsReady        *bool      `gorm:"index" json:"is_ready"`
	SavedCount     int64      `gorm:"not null;default:0" json:"saved_count"`
	CompletedCount int64      `gorm:"not null;default:0" json:"completed_count"`
	Outcome        *string    `json:"outcome"`
	CreatorID      *uuid.UUID `gorm:"type:uuid" json:"creator_id"`

	// One-to-many: a course has many classes.
	Classes []Class `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (Course) TableName() string { return "course" }

// Class belongs to a course; Index is unique within the course and defines display order.
type Class struct {
	ID            int64                       `gorm:"primaryKey" json:"id"`
	CourseID      int64                       `gorm:"not null;uniqueIndex:idx_class_course_index" json:"course_id"`
	Index         int                         `gorm:"column:index;not null;uniqueIndex:idx_class_course_index" json:"index"`
	Name          string                      `gorm:"not null" json:"name"`
	Description   *string                     `json:"description"`
	Duration      *string                     `json:"duration"`
	AudioURL      *string                     `json:"audio_url"`
	Presentation  *string                     `json:"presentation"`
	Transcription *string                     `json:"transcription"`
	Research      *string                     `json:"research"`
	Outcome       *string                     `json:"outcome"`
	Resources     datatypes.JSONSlice[string] `json:"resources"`
	Questions     datatypes.JSONSlice[string] `json:"questions"`

	CreatedAt time.Time `json:"created_at"`
}

func (Class) TableName() string { return "class" }
