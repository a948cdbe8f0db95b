package domain

import (
	"time"

	"github.com/google/uuid"
)

// SavedCourse is a library bookmark; at most one row per (user, course).
type SavedCourse struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_course_user_course" json:"user_id"`
	CourseID  int64     `gorm:"not null;index;uniqueIndex:idx_saved_course_user_course" json:"course_id"`
	Course    *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (SavedCourse) TableName() string { return "saved_course" }

func (s *SavedCourse) Owner() uuid.UUID { return s.UserID }
func (s *SavedCourse) SetOwner(id uuid.UUID) { s.UserID = id }
func (s *SavedCourse) CountedCourse() int64 { return s.CourseID }
func (s *SavedCourse) UniqueKey() map[string]interface{} {
	return map[string]interface{}{"user_id": s.UserID, "course_id": s.CourseID}
}
