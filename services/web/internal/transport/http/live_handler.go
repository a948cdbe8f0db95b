package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/search"
	"knowhow/services/web/internal/session"
	"knowhow/services/web/internal/sse"
	"knowhow/services/web/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// courseWatch is one mounted course page shared by every stream on its channel.
type courseWatch struct {
	stop   func()
	cancel context.CancelFunc
	refs   int
}

type LiveHandler struct {
	hub      *sse.Hub
	pages    Pages
	debounce time.Duration
	log      *logger.Logger

	mu       sync.Mutex
	watches  map[string]*courseWatch
	searches map[uuid.UUID]*search.Session
}

func NewLiveHandler(hub *sse.Hub, pages Pages, debounce time.Duration, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		hub:      hub,
		pages:    pages,
		debounce: debounce,
		log:      log.With("component", "LiveHandler"),
		watches:  make(map[string]*courseWatch),
		searches: make(map[uuid.UUID]*search.Session),
	}
}

// GET /api/v1/live/courses/:id
func (h *LiveHandler) Course(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := session.UserFrom(ctx)

	page, err := h.pages.Course(ctx, user, id)
	if err != nil {
		respondError(c, err)
		return
	}

	client := h.hub.NewClient(domain.UserID(user))
	channel := sse.CourseChannel(id, domain.UserID(user))
	if err := h.mount(channel, user, id); err != nil {
		h.hub.CloseClient(client)
		respondError(c, err)
		return
	}
	h.hub.AddChannel(client, channel)
	defer func() {
		h.hub.CloseClient(client)
		h.unmount(channel)
	}()

	h.hub.Send(client, sse.Message{Channel: channel, Event: sse.EventCourseView, Data: page})
	h.hub.Serve(c.Writer, c.Request, client)
}

func (h *LiveHandler) mount(channel string, user *domain.User, courseID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.watches[channel]; ok {
		w.refs++
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stop, err := h.pages.WatchCourse(ctx, user, courseID, func(page views.CoursePage, err error) {
		if err != nil {
			code, name := statusOf(err)
			h.hub.Broadcast(sse.Message{Channel: channel, Event: sse.EventError, Data: gin.H{"message": err.Error(), "code": name, "status": code}})
			return
		}
		h.hub.Broadcast(sse.Message{Channel: channel, Event: sse.EventCourseView, Data: page})
	})
	if err != nil {
		cancel()
		return err
	}
	h.watches[channel] = &courseWatch{stop: stop, cancel: cancel, refs: 1}
	h.log.Debug("course view mounted", "channel", channel)
	return nil
}

func (h *LiveHandler) unmount(channel string) {
	h.mu.Lock()
	w, ok := h.watches[channel]
	if !ok {
		h.mu.Unlock()
		return
	}
	w.refs--
	if w.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.watches, channel)
	h.mu.Unlock()

	w.cancel()
	w.stop()
	h.log.Debug("course view unmounted", "channel", channel)
}

// GET /api/v1/live/search opens a search stream. The first event carries the
// client id keystrokes are posted under.
func (h *LiveHandler) Search(c *gin.Context) {
	user := session.UserFrom(c.Request.Context())
	client := h.hub.NewClient(domain.UserID(user))
	channel := sse.SearchChannel(client.ID)
	h.hub.AddChannel(client, channel)

	s := search.NewSession(func(ctx context.Context, input string) ([]domain.Course, error) {
		return h.pages.Courses(ctx, user, input)
	}, h.debounce, func(r search.Result) {
		if r.Err != nil {
			_, name := statusOf(r.Err)
			h.hub.Broadcast(sse.Message{Channel: channel, Event: sse.EventError, Data: gin.H{"message": r.Err.Error(), "code": name, "seq": r.Seq}})
			return
		}
		h.hub.Broadcast(sse.Message{Channel: channel, Event: sse.EventSearchResults, Data: r})
	})

	h.mu.Lock()
	h.searches[client.ID] = s
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.searches, client.ID)
		h.mu.Unlock()
		h.hub.CloseClient(client)
		s.Close()
	}()

	if q := c.Query("q"); q != "" {
		s.Flush(q)
	}
	h.hub.Serve(c.Writer, c.Request, client)
}

// POST /api/v1/live/search/:client records a keystroke for an open search stream.
func (h *LiveHandler) SearchInput(c *gin.Context) {
	id, err := uuid.Parse(c.Param("client"))
	if err != nil {
		badRequest(c, "invalid client id")
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	h.mu.Lock()
	s, ok := h.searches[id]
	h.mu.Unlock()
	client, connected := h.hub.Client(id)
	user := session.UserFrom(c.Request.Context())
	if !ok || !connected || client.UserID != domain.UserID(user) {
		c.AbortWithStatusJSON(http.StatusNotFound, envelope("no such search stream", "not_found"))
		return
	}

	s.Input(req.Input)
	c.Status(http.StatusAccepted)
}

// Close ends every live search session.
func (h *LiveHandler) Close() {
	h.mu.Lock()
	sessions := make([]*search.Session, 0, len(h.searches))
	for _, s := range h.searches {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
