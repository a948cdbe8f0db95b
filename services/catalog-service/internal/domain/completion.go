package domain

import (
	"time"

	"github.com/google/uuid"
)

// CourseCompletion: at most one row per (user, course).
type CourseCompletion struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_completed_user_course" json:"user_id"`
	CourseID  int64     `gorm:"not null;index;uniqueIndex:idx_course_completed_user_course" json:"course_id"`
	Course    *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (CourseCompletion) TableName() string { return "course_completed" }

func (c *CourseCompletion) Owner() uuid.UUID { return c.UserID }
func (c *CourseCompletion) SetOwner(id uuid.UUID) { c.UserID = id }
func (c *CourseCompletion) CountedCourse() int64 { return c.CourseID }
func (c *CourseCompletion) UniqueKey() map[string]interface{} {
	return map[string]interface{}{"user_id": c.UserID, "course_id": c.CourseID}
}

// ClassCompletion: at most one row per (user, class). CourseID is denormalized
// so a course page can count its completed classes with one query.
type ClassCompletion struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_completed_user_class" json:"user_id"`
	ClassID   int64     `gorm:"not null;uniqueIndex:idx_class_completed_user_class" json:"class_id"`
	CourseID  int64     `gorm:"not null;index" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ClassCompletion) TableName() string { return "class_completed" }

func (c *ClassCompletion) Owner() uuid.UUID { return c.UserID }
func (c *ClassCompletion) SetOwner(id uuid.UUID) { c.UserID = id }
func (c *ClassCompletion) UniqueKey() map[string]interface{} {
	return map[string]interface{}{"user_id": c.UserID, "class_id": c.ClassID}
}
