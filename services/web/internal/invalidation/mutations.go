// Package invalidation runs the front end's writes and, once the backend has
// acknowledged one, marks every cached read it affects as stale.
package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"knowhow/pkg/logger"
	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/resources"
)

// GenerationFunction is the serverless function that queues class generation.
const GenerationFunction = "queue-class-generation"

// Writer is the part of the remote client mutations go through.
type Writer interface {
	Insert(ctx context.Context, name string, record interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, name string, filters ...remote.Filter) (int64, error)
	InvokeRemoteProcedure(ctx context.Context, name string, payload interface{}) (json.RawMessage, error)
}

// Invalidator is satisfied by *querycache.Cache.
type Invalidator interface {
	Invalidate(patterns ...querycache.Pattern) int
}

// Rule lists the reads a write on one table makes stale.
type Rule func(userID string, rec Record) []querycache.Pattern

// Record is what a join-row mutation is about.
type Record struct {
	CourseID int64
	ClassID  int64
}

var rules = map[string]Rule{
	"saved_course": func(u string, r Record) []querycache.Pattern {
		return []querycache.Pattern{
			querycache.Match(resources.SavedCourse, querycache.P("course", r.CourseID), querycache.P("user", u)),
			querycache.Match(resources.SavedCourses, querycache.P("user", u)),
			querycache.Match(resources.Course, querycache.P("id", r.CourseID)),
		}
	},
	"course_completed": func(u string, r Record) []querycache.Pattern {
		return []querycache.Pattern{
			querycache.Match(resources.CourseCompletion, querycache.P("course", r.CourseID), querycache.P("user", u)),
			querycache.Match(resources.CompletedCourses, querycache.P("user", u)),
			querycache.Match(resources.CompletedCoursesCount, querycache.P("user", u)),
			querycache.Match(resources.Course, querycache.P("id", r.CourseID)),
		}
	},
	"class_completed": func(u string, r Record) []querycache.Pattern {
		return []querycache.Pattern{
			querycache.Match(resources.ClassCompletion, querycache.P("class", r.ClassID), querycache.P("user", u)),
			querycache.Match(resources.CompletedClasses, querycache.P("course", r.CourseID), querycache.P("user", u)),
		}
	},
}

// Patterns returns the invalidation patterns of a write on table.
func Patterns(table, userID string, rec Record) []querycache.Pattern {
	rule, ok := rules[table]
	if !ok {
		return nil
	}
	return rule(userID, rec)
}

type Mutator struct {
	writer Writer
	cache  Invalidator
	log    *logger.Logger
}

func NewMutator(writer Writer, cache Invalidator, log *logger.Logger) *Mutator {
	return &Mutator{writer: writer, cache: cache, log: log.With("component", "Mutator")}
}

func (m *Mutator) SaveCourse(ctx context.Context, user *domain.User, courseID int64) error {
	return m.insert(ctx, user, "saved_course", Record{CourseID: courseID})
}

func (m *Mutator) UnsaveCourse(ctx context.Context, user *domain.User, courseID int64) error {
	return m.delete(ctx, user, "saved_course", Record{CourseID: courseID})
}

func (m *Mutator) CompleteCourse(ctx context.Context, user *domain.User, courseID int64) error {
	return m.insert(ctx, user, "course_completed", Record{CourseID: courseID})
}

func (m *Mutator) UncompleteCourse(ctx context.Context, user *domain.User, courseID int64) error {
	return m.delete(ctx, user, "course_completed", Record{CourseID: courseID})
}

// CompleteClass marks class classID of course courseID done.
func (m *Mutator) CompleteClass(ctx context.Context, user *domain.User, classID, courseID int64) error {
	return m.insert(ctx, user, "class_completed", Record{CourseID: courseID, ClassID: classID})
}

func (m *Mutator) UncompleteClass(ctx context.Context, user *domain.User, classID, courseID int64) error {
	return m.delete(ctx, user, "class_completed", Record{CourseID: courseID, ClassID: classID})
}

// GenerationRequest is the body of the class-generation function.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

// ErrEmptyPrompt rejects a generation request with nothing to generate.
var ErrEmptyPrompt = errors.New("prompt is required")

// RequestGeneration queues a class-generation request. Nothing is cached about
// generation, so nothing is invalidated.
func (m *Mutator) RequestGeneration(ctx context.Context, user *domain.User, prompt string) error {
	if user == nil {
		return remote.ErrAuthorizationRequired
	}
	if prompt == "" {
		return ErrEmptyPrompt
	}
	ctx = remote.WithToken(ctx, user.Token)
	if _, err := m.writer.InvokeRemoteProcedure(ctx, GenerationFunction, GenerationRequest{Prompt: prompt, UserID: user.ID}); err != nil {
		return fmt.Errorf("request generation: %w", err)
	}
	m.log.Info("generation requested", "user_id", user.ID)
	return nil
}

func (m *Mutator) insert(ctx context.Context, user *domain.User, table string, rec Record) error {
	if user == nil {
		return remote.ErrAuthorizationRequired
	}
	row := map[string]interface{}{"user_id": user.ID, "course_id": rec.CourseID}
	if rec.ClassID != 0 {
		row["class_id"] = rec.ClassID
	}

	_, err := m.writer.Insert(remote.WithToken(ctx, user.Token), table, row)
	switch {
	case errors.Is(err, remote.ErrConflict):
		m.log.Debug("row already present", "table", table, "course_id", rec.CourseID, "class_id", rec.ClassID)
	case err != nil:
		return fmt.Errorf("insert %s: %w", table, err)
	}
	m.invalidate(table, user.ID, rec)
	return nil
}

func (m *Mutator) delete(ctx context.Context, user *domain.User, table string, rec Record) error {
	if user == nil {
		return remote.ErrAuthorizationRequired
	}
	filters := []remote.Filter{remote.Eq("user_id", user.ID)}
	if rec.ClassID != 0 {
		filters = append(filters, remote.Eq("class_id", rec.ClassID))
	} else {
		filters = append(filters, remote.Eq("course_id", rec.CourseID))
	}

	n, err := m.writer.Delete(remote.WithToken(ctx, user.Token), table, filters...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n == 0 {
		m.log.Debug("nothing to delete", "table", table, "course_id", rec.CourseID, "class_id", rec.ClassID)
	}
	m.invalidate(table, user.ID, rec)
	return nil
}

func (m *Mutator) invalidate(table, userID string, rec Record) {
	patterns := Patterns(table, userID, rec)
	n := m.cache.Invalidate(patterns...)
	m.log.Debug("write acknowledged", "table", table, "stale", n)
}
