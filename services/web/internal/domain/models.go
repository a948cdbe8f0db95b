// Package domain holds the records the web front end reads from the catalog.
package domain

import "time"

type Course struct {
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	Description    *string   `json:"description"`
	IsReady        *bool     `json:"is_ready"`
	SavedCount     int64     `json:"saved_count"`
	CompletedCount int64     `json:"completed_count"`
	Outcome        *string   `json:"outcome"`
	CreatorID      *string   `json:"creator_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type Class struct {
	ID            int64     `json:"id"`
	CourseID      int64     `json:"course_id"`
	Index         int       `json:"index"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Duration      *string   `json:"duration"`
	AudioURL      *string   `json:"audio_url"`
	Presentation  *string   `json:"presentation"`
	Transcription *string   `json:"transcription"`
	Research      *string   `json:"research"`
	Outcome       *string   `json:"outcome"`
	Resources     []string  `json:"resources"`
	Questions     []string  `json:"questions"`
	CreatedAt     time.Time `json:"created_at"`
}

type SavedCourse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Course    *Course   `json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CourseCompletion struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Course    *Course   `json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ClassCompletion struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ClassID   int64     `json:"class_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID        string    `json:"id"`
	Username  *string   `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}
