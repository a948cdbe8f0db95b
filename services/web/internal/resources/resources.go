// Package resources declares every read the front end makes: the cache key of
// each resource, how it is fetched and what it resolves to when nobody is signed in.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
)

const (
	Courses               = "courses"
	TotalCourses          = "total-courses"
	Course                = "course"
	Classes               = "classes"
	Class                 = "class"
	SavedCourse           = "saved-course"
	SavedCourses          = "saved-courses"
	CourseCompletion      = "course-completion"
	ClassCompletion       = "class-completion"
	CompletedClasses      = "completed-classes"
	CompletedCourses      = "completed-courses"
	CompletedCoursesCount = "completed-courses-count"
	Profile               = "profile"
)

// Collection names on the catalog side.
const (
	courseTable          = "course"
	classTable           = "class"
	savedCourseTable     = "saved_course"
	courseCompletedTable = "course_completed"
	classCompletedTable  = "class_completed"
	profilesTable        = "profiles"
)

// Reader is the part of the remote client resources read through.
type Reader interface {
	FetchCollection(ctx context.Context, name string, q remote.Query) (remote.Result, error)
	FetchSingle(ctx context.Context, name string, filters ...remote.Filter) (json.RawMessage, bool, error)
}

// Query is one resource read bound to a viewer: the cache key and its fetcher.
type Query struct {
	Key   querycache.Key
	Fetch querycache.Fetcher
}

type fetchFunc func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error)

type definition struct {
	params []string
	// userScoped reads resolve to loggedOut without a network call when nobody is signed in.
	userScoped bool
	loggedOut  func() interface{}
	fetch      fetchFunc
}

var readyOnly = remote.Eq("is_ready", true)

var definitions = map[string]definition{
	Courses: {
		params: []string{"search"},
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			search, _ := k.Param("search")
			res, err := r.FetchCollection(ctx, courseTable, remote.Query{
				Filters: []remote.Filter{readyOnly},
				AnyOf:   remote.SearchTerms(search),
				Order:   []remote.Order{{Field: "created_at", Desc: true}},
			})
			if err != nil {
				return nil, err
			}
			return remote.DecodeAll[domain.Course](res.Records)
		},
	},
	TotalCourses: {
		fetch: func(ctx context.Context, r Reader, _ querycache.Key) (interface{}, error) {
			res, err := r.FetchCollection(ctx, courseTable, remote.Query{Filters: []remote.Filter{readyOnly}, CountOnly: true})
			if err != nil {
				return nil, err
			}
			return res.Count, nil
		},
	},
	Course: {
		params: []string{"id"},
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			id, _ := k.Param("id")
			return single[domain.Course](ctx, r, courseTable, remote.Eq("id", id), readyOnly)
		},
	},
	Classes: {
		params: []string{"course"},
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			course, _ := k.Param("course")
			res, err := r.FetchCollection(ctx, classTable, remote.Query{
				Filters: []remote.Filter{remote.Eq("course_id", course)},
				Order:   []remote.Order{{Field: "index"}},
			})
			if err != nil {
				return nil, err
			}
			return remote.DecodeAll[domain.Class](res.Records)
		},
	},
	Class: {
		params: []string{"id"},
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			id, _ := k.Param("id")
			return single[domain.Class](ctx, r, classTable, remote.Eq("id", id))
		},
	},
	SavedCourse: {
		params:     []string{"course", "user"},
		userScoped: true,
		loggedOut:  func() interface{} { return false },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			return exists(ctx, r, savedCourseTable, k, "course", "course_id")
		},
	},
	SavedCourses: {
		params:     []string{"user"},
		userScoped: true,
		loggedOut:  func() interface{} { return []domain.Course{} },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			rows, err := owned[domain.SavedCourse](ctx, r, savedCourseTable, k, "course")
			if err != nil {
				return nil, err
			}
			out := make([]domain.Course, 0, len(rows))
			for _, row := range rows {
				if row.Course != nil {
					out = append(out, *row.Course)
				}
			}
			return out, nil
		},
	},
	CourseCompletion: {
		params:     []string{"course", "user"},
		userScoped: true,
		loggedOut:  func() interface{} { return false },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			return exists(ctx, r, courseCompletedTable, k, "course", "course_id")
		},
	},
	ClassCompletion: {
		params:     []string{"class", "user"},
		userScoped: true,
		loggedOut:  func() interface{} { return false },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			return exists(ctx, r, classCompletedTable, k, "class", "class_id")
		},
	},
	CompletedClasses: {
		params:     []string{"course", "user"},
		userScoped: true,
		loggedOut:  func() interface{} { return []int64{} },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			course, _ := k.Param("course")
			user, _ := k.Param("user")
			res, err := r.FetchCollection(ctx, classCompletedTable, remote.Query{
				Filters: []remote.Filter{remote.Eq("user_id", user), remote.Eq("course_id", course)},
			})
			if err != nil {
				return nil, err
			}
			rows, err := remote.DecodeAll[domain.ClassCompletion](res.Records)
			if err != nil {
				return nil, err
			}
			ids := make([]int64, 0, len(rows))
			for _, row := range rows {
				ids = append(ids, row.ClassID)
			}
			return ids, nil
		},
	},
	CompletedCourses: {
		params:     []string{"user"},
		userScoped: true,
		loggedOut:  func() interface{} { return []domain.Course{} },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			rows, err := owned[domain.CourseCompletion](ctx, r, courseCompletedTable, k, "course")
			if err != nil {
				return nil, err
			}
			out := make([]domain.Course, 0, len(rows))
			for _, row := range rows {
				if row.Course != nil {
					out = append(out, *row.Course)
				}
			}
			return out, nil
		},
	},
	CompletedCoursesCount: {
		params:     []string{"user"},
		userScoped: true,
		loggedOut:  func() interface{} { return int64(0) },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			user, _ := k.Param("user")
			res, err := r.FetchCollection(ctx, courseCompletedTable, remote.Query{
				Filters:   []remote.Filter{remote.Eq("user_id", user)},
				CountOnly: true,
			})
			if err != nil {
				return nil, err
			}
			return res.Count, nil
		},
	},
	Profile: {
		params:     []string{"user"},
		userScoped: true,
		loggedOut:  func() interface{} { return (*domain.Profile)(nil) },
		fetch: func(ctx context.Context, r Reader, k querycache.Key) (interface{}, error) {
			user, _ := k.Param("user")
			return single[domain.Profile](ctx, r, profilesTable, remote.Eq("id", user))
		},
	},
}

// Set binds the definitions to a remote reader and the shared cache.
type Set struct {
	reader Reader
	cache  *querycache.Cache
}

func NewSet(reader Reader, cache *querycache.Cache) *Set {
	return &Set{reader: reader, cache: cache}
}

func (s *Set) Cache() *querycache.Cache { return s.cache }

// Query builds the read of resource for user. params are matched by position
// against the resource's declared parameters; user-scoped resources get the
// "user" parameter filled in from user.
func (s *Set) Query(resource string, user *domain.User, params ...interface{}) (Query, error) {
	def, ok := definitions[resource]
	if !ok {
		return Query{}, fmt.Errorf("unknown resource %q", resource)
	}

	uid := domain.UserID(user)
	var kp []querycache.Param
	i := 0
	for _, name := range def.params {
		if name == "user" && def.userScoped {
			kp = append(kp, querycache.P(name, uid))
			continue
		}
		if i >= len(params) {
			return Query{}, fmt.Errorf("resource %q: missing parameter %q", resource, name)
		}
		kp = append(kp, querycache.P(name, params[i]))
		i++
	}
	if i != len(params) {
		return Query{}, fmt.Errorf("resource %q: %d parameters given, %d expected", resource, len(params), i)
	}

	key := querycache.NewKey(resource, uid, kp...)
	if def.userScoped && user == nil {
		return Query{Key: key, Fetch: func(context.Context) (interface{}, error) { return def.loggedOut(), nil }}, nil
	}

	token := ""
	if user != nil {
		token = user.Token
	}
	reader := s.reader
	return Query{
		Key: key,
		Fetch: func(ctx context.Context) (interface{}, error) {
			return def.fetch(remote.WithToken(ctx, token), reader, key)
		},
	}, nil
}

// Load resolves q through the cache and waits for the value.
func Load[T any](ctx context.Context, s *Set, q Query) (T, error) {
	var zero T
	snap, err := s.cache.Await(ctx, q.Key, q.Fetch)
	if err != nil {
		return zero, err
	}
	v, ok := querycache.Get[T](snap)
	if !ok {
		return zero, fmt.Errorf("resource %s: unexpected value %T", q.Key.Resource, snap.Value)
	}
	return v, nil
}

// Get builds the query and loads it.
func Get[T any](ctx context.Context, s *Set, resource string, user *domain.User, params ...interface{}) (T, error) {
	q, err := s.Query(resource, user, params...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Load[T](ctx, s, q)
}

func single[T any](ctx context.Context, r Reader, table string, filters ...remote.Filter) (*T, error) {
	raw, found, err := r.FetchSingle(ctx, table, filters...)
	if err != nil || !found {
		return nil, err
	}
	v, err := remote.Decode[T](raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func exists(ctx context.Context, r Reader, table string, k querycache.Key, param, field string) (interface{}, error) {
	value, _ := k.Param(param)
	user, _ := k.Param("user")
	_, found, err := r.FetchSingle(ctx, table, remote.Eq("user_id", user), remote.Eq(field, value))
	if err != nil {
		return nil, err
	}
	return found, nil
}

func owned[T any](ctx context.Context, r Reader, table string, k querycache.Key, embed string) ([]T, error) {
	user, _ := k.Param("user")
	res, err := r.FetchCollection(ctx, table, remote.Query{
		Filters: []remote.Filter{remote.Eq("user_id", user)},
		Order:   []remote.Order{{Field: "created_at", Desc: true}},
		Embed:   []string{embed},
	})
	if err != nil {
		return nil, err
	}
	return remote.DecodeAll[T](res.Records)
}
