package views

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalog answers reads from in-memory tables, ignoring filters except the
// ones the views depend on.
type catalog struct {
	mu        sync.Mutex
	courses   map[string]string
	classes   []json.RawMessage
	completed []json.RawMessage
	saved     bool
	failing   error
}

func (c *catalog) FetchCollection(_ context.Context, name string, q remote.Query) (remote.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing != nil {
		return remote.Result{}, c.failing
	}
	switch name {
	case "class":
		return remote.Result{Records: c.classes}, nil
	case "class_completed":
		return remote.Result{Records: c.completed}, nil
	case "course_completed":
		if q.CountOnly {
			return remote.Result{Count: 1}, nil
		}
		return remote.Result{Records: []json.RawMessage{json.RawMessage(`{"course":{"id":1,"topic":"Go"}}`)}}, nil
	case "saved_course":
		return remote.Result{}, nil
	case "course":
		return remote.Result{Count: int64(len(c.courses))}, nil
	}
	return remote.Result{}, nil
}

func (c *catalog) FetchSingle(_ context.Context, name string, filters ...remote.Filter) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing != nil {
		return nil, false, c.failing
	}
	switch name {
	case "course":
		raw, ok := c.courses[filters[0].Values[0]]
		return json.RawMessage(raw), ok, nil
	case "class":
		for _, raw := range c.classes {
			var cl domain.Class
			_ = json.Unmarshal(raw, &cl)
			if filters[0].Values[0] == jsonID(cl.ID) {
				return raw, true, nil
			}
		}
	case "saved_course":
		return json.RawMessage(`{}`), c.saved, nil
	case "profiles":
		return json.RawMessage(`{"id":"u1","username":"ada"}`), true, nil
	}
	return nil, false, nil
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func raws(s ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(s))
	for _, v := range s {
		out = append(out, json.RawMessage(v))
	}
	return out
}

var ada = &domain.User{ID: "u1", Token: "tok"}

func newBuilder(t *testing.T) (*Builder, *catalog, *querycache.Cache) {
	t.Helper()
	cat := &catalog{
		courses: map[string]string{"1": `{"id":1,"topic":"Go","outcome":"Write\\nGo"}`},
		classes: raws(
			`{"id":10,"course_id":1,"index":1,"name":"Basics"}`,
			`{"id":11,"course_id":1,"index":2,"name":"Types","transcription":"a\\nb"}`,
		),
		completed: raws(`{"class_id":10}`),
	}
	cache := querycache.New(querycache.Options{})
	t.Cleanup(cache.Close)
	return NewBuilder(resources.NewSet(cat, cache)), cat, cache
}

func TestCoursePage(t *testing.T) {
	b, _, _ := newBuilder(t)

	page, err := b.Course(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.Equal(t, "Go", page.Course.Topic)
	assert.Equal(t, "Write\nGo", page.Outcome)
	require.Len(t, page.Classes, 2)
	assert.True(t, page.Classes[0].Completed)
	assert.False(t, page.Classes[1].Completed)
	assert.Equal(t, 50.0, page.Progress.Percentage)
	assert.Equal(t, "2 classes", page.Progress.Label)
	assert.False(t, page.Progress.CanComplete)
	assert.True(t, page.CanSave)

	_, err = b.Course(context.Background(), ada, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoursePageLoggedOut(t *testing.T) {
	b, _, _ := newBuilder(t)

	page, err := b.Course(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.False(t, page.CanSave)
	assert.False(t, page.Saved)
	assert.Zero(t, page.Progress.CompletedClasses)
}

func TestClassPage(t *testing.T) {
	b, _, _ := newBuilder(t)

	page, err := b.Class(context.Background(), ada, 11)
	require.NoError(t, err)
	assert.Equal(t, "Types", page.Class.Name)
	assert.Equal(t, "a\nb", page.Transcription)
	require.NotNil(t, page.PrevClassID)
	assert.Equal(t, int64(10), *page.PrevClassID)
	assert.Nil(t, page.NextClassID)

	_, err = b.Class(context.Background(), ada, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsLibraryAndMe(t *testing.T) {
	b, _, _ := newBuilder(t)
	ctx := context.Background()

	stats, err := b.Stats(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalCourses: 1, CompletedCourses: 1, SignedIn: true}, stats)

	anon, err := b.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalCourses: 1}, anon)

	lib, err := b.Library(ctx, ada)
	require.NoError(t, err)
	require.Len(t, lib.Completed, 1)
	assert.Empty(t, lib.Saved)

	me, err := b.Me(ctx, ada)
	require.NoError(t, err)
	require.NotNil(t, me.Profile)
	assert.Equal(t, "ada", *me.Profile.Username)
}

func TestWatchCoursePushesAfterInvalidation(t *testing.T) {
	b, cat, cache := newBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.Course(ctx, ada, 1)
	require.NoError(t, err)

	pages := make(chan CoursePage, 8)
	stop, err := b.WatchCourse(ctx, ada, 1, func(p CoursePage, err error) {
		if err == nil {
			pages <- p
		}
	})
	require.NoError(t, err)
	defer stop()

	cat.mu.Lock()
	cat.saved = true
	cat.mu.Unlock()
	cache.Invalidate(querycache.Match(resources.SavedCourse, querycache.P("course", 1)))

	select {
	case p := <-pages:
		assert.True(t, p.Saved)
	case <-time.After(time.Second):
		t.Fatal("no page pushed after invalidation")
	}
}

func TestWatchCourseReportsFailures(t *testing.T) {
	b, cat, cache := newBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.Course(ctx, ada, 1)
	require.NoError(t, err)

	boom := &remote.Error{Op: "select", Kind: remote.ErrNetwork}
	failures := make(chan error, 8)
	stop, err := b.WatchCourse(ctx, ada, 1, func(_ CoursePage, err error) {
		if err != nil {
			failures <- err
		}
	})
	require.NoError(t, err)
	defer stop()

	cat.mu.Lock()
	cat.failing = boom
	cat.mu.Unlock()
	cache.Invalidate(querycache.Match(resources.Classes))

	select {
	case err := <-failures:
		assert.True(t, errors.Is(err, remote.ErrNetwork))
	case <-time.After(time.Second):
		t.Fatal("no failure pushed")
	}
}
