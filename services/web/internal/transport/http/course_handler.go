package handlers

import (
	"context"
	"net/http"
	"strconv"

	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/search"
	"knowhow/services/web/internal/session"
	"knowhow/services/web/internal/views"

	"github.com/gin-gonic/gin"
)

// Pages is satisfied by *views.Builder.
type Pages interface {
	Stats(ctx context.Context, user *domain.User) (views.Stats, error)
	Courses(ctx context.Context, user *domain.User, search string) ([]domain.Course, error)
	Course(ctx context.Context, user *domain.User, courseID int64) (views.CoursePage, error)
	Class(ctx context.Context, user *domain.User, classID int64) (views.ClassPage, error)
	ClassCourseID(ctx context.Context, user *domain.User, classID int64) (int64, error)
	Library(ctx context.Context, user *domain.User) (views.Library, error)
	Me(ctx context.Context, user *domain.User) (views.Me, error)
	WatchCourse(ctx context.Context, user *domain.User, courseID int64, push func(views.CoursePage, error)) (func(), error)
}

// Mutations is satisfied by *invalidation.Mutator.
type Mutations interface {
	SaveCourse(ctx context.Context, user *domain.User, courseID int64) error
	UnsaveCourse(ctx context.Context, user *domain.User, courseID int64) error
	CompleteCourse(ctx context.Context, user *domain.User, courseID int64) error
	UncompleteCourse(ctx context.Context, user *domain.User, courseID int64) error
	CompleteClass(ctx context.Context, user *domain.User, classID, courseID int64) error
	UncompleteClass(ctx context.Context, user *domain.User, classID, courseID int64) error
	RequestGeneration(ctx context.Context, user *domain.User, prompt string) error
}

type CourseHandler struct {
	pages     Pages
	mutations Mutations
}

func NewCourseHandler(pages Pages, mutations Mutations) *CourseHandler {
	return &CourseHandler{pages: pages, mutations: mutations}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// GET /api/v1/stats
func (h *CourseHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.pages.Stats(ctx, session.UserFrom(ctx))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/v1/courses?search=
func (h *CourseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	courses, err := h.pages.Courses(ctx, session.UserFrom(ctx), search.Normalize(c.Query("search")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GET /api/v1/courses/:id
func (h *CourseHandler) GetOne(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	page, err := h.pages.Course(ctx, session.UserFrom(ctx), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Save, Unsave, Complete and Uncomplete answer with the refreshed course page.
func (h *CourseHandler) courseMutation(mutate func(context.Context, *domain.User, int64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		user := session.UserFrom(ctx)
		if err := mutate(ctx, user, id); err != nil {
			respondError(c, err)
			return
		}
		page, err := h.pages.Course(ctx, user, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func (h *CourseHandler) Save() gin.HandlerFunc { return h.courseMutation(h.mutations.SaveCourse) }
func (h *CourseHandler) Unsave() gin.HandlerFunc { return h.courseMutation(h.mutations.UnsaveCourse) }
func (h *CourseHandler) Complete() gin.HandlerFunc { return h.courseMutation(h.mutations.CompleteCourse) }
func (h *CourseHandler) Uncomplete() gin.HandlerFunc { return h.courseMutation(h.mutations.UncompleteCourse) }

// GET /api/v1/classes/:id
func (h *CourseHandler) GetClass(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	page, err := h.pages.Class(ctx, session.UserFrom(ctx), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CourseHandler) classMutation(mutate func(context.Context, *domain.User, int64, int64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		user := session.UserFrom(ctx)
		if user == nil {
			respondError(c, remote.ErrAuthorizationRequired)
			return
		}
		courseID, err := h.pages.ClassCourseID(ctx, user, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := mutate(ctx, user, id, courseID); err != nil {
			respondError(c, err)
			return
		}
		page, err := h.pages.Class(ctx, user, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func (h *CourseHandler) CompleteClass() gin.HandlerFunc {
	return h.classMutation(h.mutations.CompleteClass)
}

func (h *CourseHandler) UncompleteClass() gin.HandlerFunc {
	return h.classMutation(h.mutations.UncompleteClass)
}
