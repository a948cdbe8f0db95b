// Package search runs search-as-you-type sessions: keystrokes are debounced and
// only the answer to the latest issued query is delivered.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"knowhow/services/web/internal/domain"
)

const DefaultDebounce = 300 * time.Millisecond

// Lookup answers one search query.
type Lookup func(ctx context.Context, input string) ([]domain.Course, error)

type Result struct {
	// Seq is the token of the query this answers; it grows with every issued query.
	Seq     uint64          `json:"seq"`
	Input   string          `json:"input"`
	Courses []domain.Course `json:"courses"`
	Err     error           `json:"-"`
}

type Session struct {
	mu sync.Mutex
	// deliverMu keeps deliveries in issue order.
	deliverMu sync.Mutex
	lookup    Lookup
	deliver   func(Result)
	delay     time.Duration
	timer     *time.Timer
	seq       uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession starts a session whose results go to deliver, one call at a time
// per query. A delay of zero means DefaultDebounce.
func NewSession(lookup Lookup, delay time.Duration, deliver func(Result)) *Session {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{lookup: lookup, deliver: deliver, delay: delay, ctx: ctx, cancel: cancel}
}

// Normalize collapses whitespace so equal searches share one cache entry.
func Normalize(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// Input records a keystroke. The query is issued once input has been quiet for the debounce delay.
func (s *Session) Input(text string) {
	text = Normalize(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.issue(text) })
}

// Flush issues text immediately, skipping the debounce.
func (s *Session) Flush(text string) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.issue(Normalize(text))
}

func (s *Session) issue(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		courses, err := s.lookup(s.ctx, text)

		s.deliverMu.Lock()
		defer s.deliverMu.Unlock()
		s.mu.Lock()
		latest := seq == s.seq && !s.closed
		s.mu.Unlock()
		if !latest {
			return
		}
		s.deliver(Result{Seq: seq, Input: text, Courses: courses, Err: err})
	}()
}

// Close stops the session. Pending keystrokes are dropped and no result is delivered afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
