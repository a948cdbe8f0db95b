// Package views assembles page view models from cached resources.
package views

import (
	"context"
	"errors"
	"sync"

	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/resources"
	"knowhow/services/web/internal/viewstate"

	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("not found")

type Stats struct {
	TotalCourses     int64 `json:"total_courses"`
	CompletedCourses int64 `json:"completed_courses"`
	SignedIn         bool  `json:"signed_in"`
}

type CoursePage struct {
	Course   domain.Course         `json:"course"`
	Outcome  string                `json:"outcome"`
	Classes  []viewstate.ClassItem `json:"classes"`
	Progress viewstate.Progress    `json:"progress"`
	Saved    bool                  `json:"saved"`
	CanSave  bool                  `json:"can_save"`
}

type ClassPage struct {
	Class         domain.Class  `json:"class"`
	Course        domain.Course `json:"course"`
	Description   string        `json:"description"`
	Presentation  string        `json:"presentation"`
	Transcription string        `json:"transcription"`
	Research      string        `json:"research"`
	Outcome       string        `json:"outcome"`
	Completed     bool          `json:"completed"`
	PrevClassID   *int64        `json:"prev_class_id"`
	NextClassID   *int64        `json:"next_class_id"`
}

type Library struct {
	Completed []domain.Course `json:"completed"`
	Saved     []domain.Course `json:"saved"`
}

type Me struct {
	UserID  string          `json:"user_id"`
	Profile *domain.Profile `json:"profile"`
}

type Builder struct {
	set *resources.Set
}

func NewBuilder(set *resources.Set) *Builder {
	return &Builder{set: set}
}

func (b *Builder) Stats(ctx context.Context, user *domain.User) (Stats, error) {
	var out Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalCourses, err = resources.Get[int64](ctx, b.set, resources.TotalCourses, user)
		return err
	})
	g.Go(func() (err error) {
		out.CompletedCourses, err = resources.Get[int64](ctx, b.set, resources.CompletedCoursesCount, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	out.SignedIn = user != nil
	return out, nil
}

func (b *Builder) Courses(ctx context.Context, user *domain.User, search string) ([]domain.Course, error) {
	return resources.Get[[]domain.Course](ctx, b.set, resources.Courses, user, search)
}

// CourseQueries lists every read the course page depends on.
func (b *Builder) CourseQueries(user *domain.User, courseID int64) ([]resources.Query, error) {
	specs := []struct {
		resource string
		params   []interface{}
	}{
		{resources.Course, []interface{}{courseID}},
		{resources.Classes, []interface{}{courseID}},
		{resources.CompletedClasses, []interface{}{courseID}},
		{resources.SavedCourse, []interface{}{courseID}},
		{resources.CourseCompletion, []interface{}{courseID}},
	}
	out := make([]resources.Query, 0, len(specs))
	for _, s := range specs {
		q, err := b.set.Query(s.resource, user, s.params...)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *Builder) Course(ctx context.Context, user *domain.User, courseID int64) (CoursePage, error) {
	qs, err := b.CourseQueries(user, courseID)
	if err != nil {
		return CoursePage{}, err
	}

	var (
		course    *domain.Course
		classes   []domain.Class
		completed []int64
		saved     bool
		done      bool
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { course, err = resources.Load[*domain.Course](ctx, b.set, qs[0]); return })
	g.Go(func() (err error) { classes, err = resources.Load[[]domain.Class](ctx, b.set, qs[1]); return })
	g.Go(func() (err error) { completed, err = resources.Load[[]int64](ctx, b.set, qs[2]); return })
	g.Go(func() (err error) { saved, err = resources.Load[bool](ctx, b.set, qs[3]); return })
	g.Go(func() (err error) { done, err = resources.Load[bool](ctx, b.set, qs[4]); return })
	if err := g.Wait(); err != nil {
		return CoursePage{}, err
	}
	if course == nil {
		return CoursePage{}, ErrNotFound
	}

	items := viewstate.MarkCompleted(classes, completed)
	return CoursePage{
		Course:   *course,
		Outcome:  viewstate.NormalizeContent(course.Outcome),
		Classes:  items,
		Progress: viewstate.NewProgress(items, done),
		Saved:    saved,
		CanSave:  user != nil,
	}, nil
}

func (b *Builder) Class(ctx context.Context, user *domain.User, classID int64) (ClassPage, error) {
	class, err := resources.Get[*domain.Class](ctx, b.set, resources.Class, user, classID)
	if err != nil {
		return ClassPage{}, err
	}
	if class == nil {
		return ClassPage{}, ErrNotFound
	}

	var (
		course    *domain.Course
		siblings  []domain.Class
		completed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		course, err = resources.Get[*domain.Course](gctx, b.set, resources.Course, user, class.CourseID)
		return
	})
	g.Go(func() (err error) {
		siblings, err = resources.Get[[]domain.Class](gctx, b.set, resources.Classes, user, class.CourseID)
		return
	})
	g.Go(func() (err error) {
		completed, err = resources.Get[bool](gctx, b.set, resources.ClassCompletion, user, classID)
		return
	})
	if err := g.Wait(); err != nil {
		return ClassPage{}, err
	}
	// classes of courses that are not ready are not shown
	if course == nil {
		return ClassPage{}, ErrNotFound
	}

	page := ClassPage{
		Class:         *class,
		Course:        *course,
		Description:   viewstate.NormalizeContent(class.Description),
		Presentation:  viewstate.NormalizeContent(class.Presentation),
		Transcription: viewstate.NormalizeContent(class.Transcription),
		Research:      viewstate.NormalizeContent(class.Research),
		Outcome:       viewstate.NormalizeContent(class.Outcome),
		Completed:     completed,
	}
	for i, s := range siblings {
		if s.ID != classID {
			continue
		}
		if i > 0 {
			id := siblings[i-1].ID
			page.PrevClassID = &id
		}
		if i < len(siblings)-1 {
			id := siblings[i+1].ID
			page.NextClassID = &id
		}
	}
	return page, nil
}

// ClassCourseID returns the course class classID belongs to.
func (b *Builder) ClassCourseID(ctx context.Context, user *domain.User, classID int64) (int64, error) {
	class, err := resources.Get[*domain.Class](ctx, b.set, resources.Class, user, classID)
	if err != nil {
		return 0, err
	}
	if class == nil {
		return 0, ErrNotFound
	}
	return class.CourseID, nil
}

func (b *Builder) Library(ctx context.Context, user *domain.User) (Library, error) {
	var out Library
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Completed, err = resources.Get[[]domain.Course](ctx, b.set, resources.CompletedCourses, user)
		return err
	})
	g.Go(func() (err error) {
		out.Saved, err = resources.Get[[]domain.Course](ctx, b.set, resources.SavedCourses, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return Library{}, err
	}
	return out, nil
}

func (b *Builder) Me(ctx context.Context, user *domain.User) (Me, error) {
	profile, err := resources.Get[*domain.Profile](ctx, b.set, resources.Profile, user)
	if err != nil {
		return Me{}, err
	}
	return Me{UserID: domain.UserID(user), Profile: profile}, nil
}

// WatchCourse keeps the course page of user mounted: every time one of its reads
// changes, the page is rebuilt and handed to push. The caller renders the first
// page itself. stop unmounts it.
func (b *Builder) WatchCourse(ctx context.Context, user *domain.User, courseID int64, push func(CoursePage, error)) (stop func(), err error) {
	qs, err := b.CourseQueries(user, courseID)
	if err != nil {
		return nil, err
	}
	cache := b.set.Cache()

	// rebuilds are serialized so pages are pushed in order
	var mu sync.Mutex
	rebuild := func(s querycache.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		switch s.Status {
		case querycache.StatusResolved:
			push(b.Course(ctx, user, courseID))
		case querycache.StatusError:
			// a failed read is reported, not retried
			push(CoursePage{}, s.Err)
		}
	}

	stops := make([]func(), 0, len(qs))
	for _, q := range qs {
		_, unsubscribe := cache.Watch(q.Key, q.Fetch, rebuild)
		stops = append(stops, unsubscribe)
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}, nil
}
