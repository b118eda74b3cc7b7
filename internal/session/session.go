// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session carries the signed-in identity through every operation.
// Identity is established by the fronting auth gateway; this package only
// reads it and reports when it changes. The identity headers are trusted as
// sent, so the service must only be reachable through that gateway.
package session

import (
	"container/list"
	"context"
	"net/http"
	"strings"
	"sync"
)

// Headers set by the auth gateway.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// Session is the caller's identity. A nil *Session means anonymous.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// HasEmail reports whether s carries an e-mail identity.
func (s *Session) HasEmail() bool {
	return s != nil && s.Email != ""
}

// FromRequest reads the gateway headers. It returns nil when neither a
// user id nor an e-mail is present.
func FromRequest(r *http.Request) *Session {
	s := &Session{
		UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Email:  strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Name:   strings.TrimSpace(r.Header.Get(HeaderUserName)),
	}
	if s.UserID == "" && s.Email == "" {
		return nil
	}
	return s
}

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by NewContext, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// DefaultTrackerSize is the number of identities a Tracker made by
// NewTracker remembers.
const DefaultTrackerSize = 10000

// Tracker remembers the most recently seen identities and notifies
// subscribers the first time one appears. When full it forgets the least
// recently seen identity, which is then reported again on its next visit.
type Tracker struct {
	mu     sync.Mutex
	max    int
	seen   map[string]*list.Element
	order  *list.List
	subs   map[int]func(context.Context, Session)
	nextID int
}

// NewTracker returns an empty Tracker holding up to DefaultTrackerSize
// identities.
func NewTracker() *Tracker {
	return NewTrackerSize(DefaultTrackerSize)
}

// NewTrackerSize returns an empty Tracker holding up to size identities.
// A size below 1 is treated as 1.
func NewTrackerSize(size int) *Tracker {
	if size < 1 {
		size = 1
	}
	return &Tracker{
		max:   size,
		seen:  make(map[string]*list.Element),
		order: list.New(),
		subs:  make(map[int]func(context.Context, Session)),
	}
}

func trackerKey(s *Session) string {
	return s.UserID + "\x00" + strings.ToLower(s.Email)
}

// Subscribe registers fn for new identities. The returned func removes it.
func (t *Tracker) Subscribe(fn func(context.Context, Session)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Observe records s and, if its identity is not remembered, calls every
// subscriber synchronously. It reports whether s was new. A nil session is
// ignored.
func (t *Tracker) Observe(ctx context.Context, s *Session) bool {
	if s == nil {
		return false
	}
	key := trackerKey(s)

	t.mu.Lock()
	if el, ok := t.seen[key]; ok {
		t.order.MoveToFront(el)
		t.mu.Unlock()
		return false
	}
	for t.order.Len() >= t.max {
		oldest := t.order.Back()
		t.order.Remove(oldest)
		delete(t.seen, oldest.Value.(string))
	}
	t.seen[key] = t.order.PushFront(key)
	subs := make([]func(context.Context, Session), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(ctx, *s)
	}
	return true
}

// Forget drops s from the seen set so the next Observe notifies again,
// e.g. after a subscriber failed to persist it.
func (t *Tracker) Forget(s *Session) {
	if s == nil {
		return
	}
	t.mu.Lock()
	key := trackerKey(s)
	if el, ok := t.seen[key]; ok {
		t.order.Remove(el)
		delete(t.seen, key)
	}
	t.mu.Unlock()
}
