package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/pkg/catalogpb"
	"knowhow/services/web/internal/invalidation"
	"knowhow/services/web/internal/middleware"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/resources"
	"knowhow/services/web/internal/session"
	"knowhow/services/web/internal/sse"
	"knowhow/services/web/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type invocation struct {
	Path          string
	Authorization string
	Body          map[string]interface{}
}

type functionsStub struct {
	mu    sync.Mutex
	calls []invocation
}

func (f *functionsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.calls = append(f.calls, invocation{Path: r.URL.Path, Authorization: r.Header.Get("Authorization"), Body: body})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":true}`))
}

type harness struct {
	router    *gin.Engine
	catalog   *fakeCatalog
	functions *functionsStub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := newFakeCatalog()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	catalogpb.RegisterCollectionServiceServer(s, catalog)
	catalogpb.RegisterAuthServiceServer(s, catalog)
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	functions := &functionsStub{}
	fnSrv := httptest.NewServer(functions)

	log := logger.Nop()
	rc := remote.NewClient(catalogpb.NewCollectionServiceClient(conn), fnSrv.URL+"/functions/v1", "anon", nil)
	cache := querycache.New(querycache.Options{FetchTimeout: 5 * time.Second})
	pages := views.NewBuilder(resources.NewSet(rc, cache))
	mutator := invalidation.NewMutator(rc, cache, log)
	sessions := session.NewService(catalogpb.NewAuthServiceClient(conn), cache, log)
	live := NewLiveHandler(sse.NewHub(log, time.Minute), pages, 10*time.Millisecond, log)

	t.Cleanup(func() {
		live.Close()
		cache.Close()
		fnSrv.Close()
		_ = conn.Close()
		s.Stop()
	})

	router := NewRouter(Handlers{
		Auth:       NewAuthHandler(sessions, log),
		Courses:    NewCourseHandler(pages, mutator),
		Users:      NewUserHandler(pages),
		Generation: NewGenerationHandler(mutator, log),
		Live:       live,
	}, RouterConfig{Session: middleware.Session(sessions, log)})

	return &harness{router: router, catalog: catalog, functions: functions}
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func topics(body map[string]interface{}, field string) []string {
	var out []string
	list, _ := body[field].([]interface{})
	for _, c := range list {
		out = append(out, c.(map[string]interface{})["topic"].(string))
	}
	return out
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestCourses_ListAndSearch(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []string{"Go concurrency", "Rust"}, topics(body, "courses"))

	_, body = h.do(t, http.MethodGet, "/api/v1/courses?search=go", "", nil)
	assert.Equal(t, []string{"Go concurrency"}, topics(body, "courses"))

	_, body = h.do(t, http.MethodGet, "/api/v1/courses?search=rust+channels", "", nil)
	assert.ElementsMatch(t, []string{"Go concurrency", "Rust"}, topics(body, "courses"))

	_, body = h.do(t, http.MethodGet, "/api/v1/courses?search=haskell", "", nil)
	assert.Empty(t, topics(body, "courses"))
}

func TestCourses_RepeatedReadsHitTheCache(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/api/v1/courses", "", nil)

	h.catalog.mu.Lock()
	before := h.catalog.selects
	h.catalog.mu.Unlock()

	h.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	h.catalog.mu.Lock()
	defer h.catalog.mu.Unlock()
	assert.Equal(t, before, h.catalog.selects)
}

func TestCourses_EquivalentSearchesShareOneEntry(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(t, http.MethodGet, "/api/v1/courses?search=rust+channels", "", nil)
	assert.Len(t, topics(body, "courses"), 2)

	h.catalog.mu.Lock()
	before := h.catalog.selects
	h.catalog.mu.Unlock()

	_, body = h.do(t, http.MethodGet, "/api/v1/courses?search=++rust+++channels+", "", nil)
	assert.Len(t, topics(body, "courses"), 2)
	h.catalog.mu.Lock()
	defer h.catalog.mu.Unlock()
	assert.Equal(t, before, h.catalog.selects)
}

func TestStats(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total_courses"])
	assert.EqualValues(t, 0, body["completed_courses"])
	assert.Equal(t, false, body["signed_in"])

	code, _ = h.do(t, http.MethodPost, "/api/v1/courses/1/complete", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)

	_, body = h.do(t, http.MethodGet, "/api/v1/stats", "tok-u1", nil)
	assert.EqualValues(t, 1, body["completed_courses"])
	assert.Equal(t, true, body["signed_in"])

	// another viewer's count is untouched
	_, body = h.do(t, http.MethodGet, "/api/v1/stats", "tok-u2", nil)
	assert.EqualValues(t, 0, body["completed_courses"])
}

func TestCourse_SaveAndUnsave(t *testing.T) {
	h := newHarness(t)

	code, page := h.do(t, http.MethodGet, "/api/v1/courses/1", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, page["saved"])
	assert.Equal(t, true, page["can_save"])

	code, page = h.do(t, http.MethodPost, "/api/v1/courses/1/save", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, page["saved"])
	assert.EqualValues(t, 1, page["course"].(map[string]interface{})["saved_count"])

	// saving twice is not an error and counts once
	code, page = h.do(t, http.MethodPost, "/api/v1/courses/1/save", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, page["course"].(map[string]interface{})["saved_count"])

	// the public counter is fresh for other viewers too
	_, page = h.do(t, http.MethodGet, "/api/v1/courses/1", "tok-u2", nil)
	assert.Equal(t, false, page["saved"])
	assert.EqualValues(t, 1, page["course"].(map[string]interface{})["saved_count"])

	_, lib := h.do(t, http.MethodGet, "/api/v1/library", "tok-u1", nil)
	assert.Equal(t, []string{"Go concurrency"}, topics(lib, "saved"))

	code, page = h.do(t, http.MethodDelete, "/api/v1/courses/1/save", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, page["saved"])
	assert.EqualValues(t, 0, page["course"].(map[string]interface{})["saved_count"])

	code, _ = h.do(t, http.MethodDelete, "/api/v1/courses/1/save", "tok-u1", nil)
	assert.Equal(t, http.StatusOK, code)

	_, lib = h.do(t, http.MethodGet, "/api/v1/library", "tok-u1", nil)
	assert.Empty(t, topics(lib, "saved"))
}

func TestCourse_AnonymousViewer(t *testing.T) {
	h := newHarness(t)

	code, page := h.do(t, http.MethodGet, "/api/v1/courses/1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, page["can_save"])

	code, body := h.do(t, http.MethodPost, "/api/v1/courses/1/save", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "authorization_required", errorCode(body))

	// an unknown token is treated as nobody signed in
	code, _ = h.do(t, http.MethodPost, "/api/v1/classes/10/complete", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, lib := h.do(t, http.MethodGet, "/api/v1/library", "", nil)
	assert.Empty(t, topics(lib, "saved"))
	assert.Empty(t, topics(lib, "completed"))
}

func TestCourse_NotFoundAndBadID(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodGet, "/api/v1/courses/3", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errorCode(body))

	code, _ = h.do(t, http.MethodGet, "/api/v1/courses/999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = h.do(t, http.MethodGet, "/api/v1/courses/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", errorCode(body))

	code, _ = h.do(t, http.MethodGet, "/api/v1/classes/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestClass_PageAndCompletion(t *testing.T) {
	h := newHarness(t)

	code, page := h.do(t, http.MethodGet, "/api/v1/classes/11", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "line one\nline two", page["transcription"])
	assert.EqualValues(t, 10, page["prev_class_id"])
	assert.Nil(t, page["next_class_id"])

	code, page = h.do(t, http.MethodPost, "/api/v1/classes/10/complete", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, page["completed"])

	_, course := h.do(t, http.MethodGet, "/api/v1/courses/1", "tok-u1", nil)
	progress := course["progress"].(map[string]interface{})
	assert.EqualValues(t, 2, progress["total_classes"])
	assert.EqualValues(t, 1, progress["completed_classes"])
	assert.EqualValues(t, 50, progress["percentage"])
	assert.Equal(t, false, progress["can_complete"])

	h.do(t, http.MethodPost, "/api/v1/classes/11/complete", "tok-u1", nil)
	_, course = h.do(t, http.MethodGet, "/api/v1/courses/1", "tok-u1", nil)
	progress = course["progress"].(map[string]interface{})
	assert.EqualValues(t, 100, progress["percentage"])
	assert.Equal(t, true, progress["can_complete"])

	code, page = h.do(t, http.MethodDelete, "/api/v1/classes/10/complete", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, page["completed"])

	code, _ = h.do(t, http.MethodPost, "/api/v1/classes/999/complete", "tok-u1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodGet, "/api/v1/me", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "ada", body["profile"].(map[string]interface{})["username"])
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/generate", "tok-u1", gin.H{"prompt": "  Learn Go  "})
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, true, body["success"])

	h.functions.mu.Lock()
	require.Len(t, h.functions.calls, 1)
	call := h.functions.calls[0]
	h.functions.mu.Unlock()
	assert.Equal(t, "/functions/v1/"+invalidation.GenerationFunction, call.Path)
	assert.Equal(t, "Bearer tok-u1", call.Authorization)
	assert.Equal(t, "Learn Go", call.Body["prompt"])
	assert.Equal(t, "u1", call.Body["userId"])

	code, _ = h.do(t, http.MethodPost, "/api/v1/generate", "", gin.H{"prompt": "Learn Go"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/generate", "tok-u1", gin.H{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/generate", "tok-u1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	h.functions.mu.Lock()
	defer h.functions.mu.Unlock()
	assert.Len(t, h.functions.calls, 1)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{"email": "new@example.com", "password": "secret1", "username": "new"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "u-new", body["user_id"])

	code, body = h.do(t, http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{"email": "taken@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", errorCode(body))

	code, _ = h.do(t, http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", gin.H{"email": "ada@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tok-u1", body["access_token"])
	assert.Equal(t, "u1", body["user_id"])
	assert.EqualValues(t, 1700000000, body["expires_at"])

	code, _ = h.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = h.do(t, http.MethodPost, "/api/v1/auth/sign-out", "tok-u1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Signed out", body["message"])

	code, _ = h.do(t, http.MethodPost, "/api/v1/auth/sign-out", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

type event struct {
	Name string
	Data map[string]interface{}
}

// stream opens an SSE endpoint on srv and decodes its events in the background.
func stream(t *testing.T, srv *httptest.Server, path, token string) <-chan event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
	})

	events := make(chan event, 16)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		var ev event
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Data)
			case line == "" && ev.Name != "":
				events <- ev
				ev = event{}
			}
		}
	}()
	return events
}

func next(t *testing.T, events <-chan event, name string) event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed while waiting for %s", name)
			if ev.Name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", name)
		}
	}
}

func pageOf(ev event) map[string]interface{} {
	page, _ := ev.Data["data"].(map[string]interface{})
	return page
}

func TestLive_CourseStreamFollowsMutations(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	events := stream(t, srv, "/api/v1/live/courses/1", "tok-u1")
	next(t, events, "ready")
	first := next(t, events, string(sse.EventCourseView))
	assert.Equal(t, false, pageOf(first)["saved"])
	assert.Equal(t, "course:1:u1", first.Data["channel"])

	code, _ := h.do(t, http.MethodPost, "/api/v1/courses/1/save", "tok-u1", nil)
	require.Equal(t, http.StatusOK, code)

	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok)
			if ev.Name == string(sse.EventCourseView) && pageOf(ev)["saved"] == true {
				return
			}
		case <-timeout:
			t.Fatal("course stream never showed the saved course")
		}
	}
}

func TestLive_CourseStreamNotFound(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/live/courses/3", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLive_Search(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	events := stream(t, srv, "/api/v1/live/search?q=rust", "tok-u1")
	ready := next(t, events, "ready")
	clientID, _ := ready.Data["client_id"].(string)
	require.NotEmpty(t, clientID)

	initial := next(t, events, string(sse.EventSearchResults))
	assert.Equal(t, []string{"Rust"}, topics(pageOf(initial), "courses"))

	code, _ := h.do(t, http.MethodPost, "/api/v1/live/search/"+clientID, "tok-u1", gin.H{"input": "concurrency"})
	require.Equal(t, http.StatusAccepted, code)
	got := next(t, events, string(sse.EventSearchResults))
	assert.Equal(t, "concurrency", pageOf(got)["input"])
	assert.Equal(t, []string{"Go concurrency"}, topics(pageOf(got), "courses"))

	// keystrokes only reach the stream's own viewer
	code, _ = h.do(t, http.MethodPost, "/api/v1/live/search/"+clientID, "tok-u2", gin.H{"input": "x"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLive_SearchInputRejectsUnknownClients(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/live/search/8c4b2f3e-1d2a-4f41-9d55-3f6e2a1b0c9d", "", gin.H{"input": "go"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errorCode(body))

	code, _ = h.do(t, http.MethodPost, "/api/v1/live/search/not-a-uuid", "", gin.H{"input": "go"})
	assert.Equal(t, http.StatusBadRequest, code)
}
