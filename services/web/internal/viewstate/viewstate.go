// Package viewstate computes what the pages show from resolved resources.
// Everything here is pure.
package viewstate

import (
	"fmt"
	"strings"

	"knowhow/services/web/internal/domain"
)

// ProgressPercentage is completed/total as a percentage, 0 for an empty course.
func ProgressPercentage(total, completed int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

func AllComplete(total, completed int) bool {
	return total > 0 && completed == total
}

// CanCompleteCourse reports whether the "Complete Course" action is offered:
// every class is done and the course is not completed yet.
func CanCompleteCourse(total, completed int, courseCompleted bool) bool {
	return AllComplete(total, completed) && !courseCompleted
}

func ClassCountLabel(n int) string {
	if n == 1 {
		return "1 class"
	}
	return fmt.Sprintf("%d classes", n)
}

// ClassItem is one row of a course's class list.
type ClassItem struct {
	domain.Class
	Completed bool `json:"completed"`
}

// MarkCompleted pairs classes with their completion flag, keeping class order.
func MarkCompleted(classes []domain.Class, completedIDs []int64) []ClassItem {
	done := make(map[int64]struct{}, len(completedIDs))
	for _, id := range completedIDs {
		done[id] = struct{}{}
	}
	out := make([]ClassItem, 0, len(classes))
	for _, c := range classes {
		_, ok := done[c.ID]
		out = append(out, ClassItem{Class: c, Completed: ok})
	}
	return out
}

// CountCompleted counts the classes of the list that are completed. IDs of
// classes outside the list are ignored.
func CountCompleted(items []ClassItem) int {
	n := 0
	for _, it := range items {
		if it.Completed {
			n++
		}
	}
	return n
}

var escapedNewline = strings.NewReplacer(`\n`, "\n")

// NormalizeContent turns the literal `\n` sequences long-form fields are stored
// with into newlines. A nil field becomes "".
func NormalizeContent(s *string) string {
	if s == nil {
		return ""
	}
	return escapedNewline.Replace(*s)
}

// Progress is the progress box of the course page.
type Progress struct {
	TotalClasses     int     `json:"total_classes"`
	CompletedClasses int     `json:"completed_classes"`
	Percentage       float64 `json:"percentage"`
	Label            string  `json:"label"`
	CourseCompleted  bool    `json:"course_completed"`
	CanComplete      bool    `json:"can_complete"`
}

func NewProgress(items []ClassItem, courseCompleted bool) Progress {
	total := len(items)
	completed := CountCompleted(items)
	return Progress{
		TotalClasses:     total,
		CompletedClasses: completed,
		Percentage:       ProgressPercentage(total, completed),
		Label:            ClassCountLabel(total),
		CourseCompleted:  courseCompleted,
		CanComplete:      CanCompleteCourse(total, completed, courseCompleted),
	}
}
