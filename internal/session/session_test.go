// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- FromRequest ---

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    *Session
	}{
		{"anonymous", nil, nil},
		{"blank headers", map[string]string{HeaderUserEmail: "  "}, nil},
		{"name only is anonymous", map[string]string{HeaderUserName: "Ada"}, nil},
		{
			"full identity",
			map[string]string{HeaderUserID: "u-1", HeaderUserEmail: " ada@example.org ", HeaderUserName: "Ada"},
			&Session{UserID: "u-1", Email: "ada@example.org", Name: "Ada"},
		},
		{"email only", map[string]string{HeaderUserEmail: "ada@example.org"}, &Session{Email: "ada@example.org"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	s := &Session{Email: "a@b.c"}
	assert.Same(t, s, FromContext(NewContext(context.Background(), s)))
}

func TestHasEmail(t *testing.T) {
	var s *Session
	assert.False(t, s.HasEmail())
	assert.False(t, (&Session{UserID: "x"}).HasEmail())
	assert.True(t, (&Session{Email: "a@b.c"}).HasEmail())
}

// --- Tracker ---

func TestTrackerNotifiesOncePerIdentity(t *testing.T) {
	tr := NewTracker()
	var got []Session
	tr.Subscribe(func(_ context.Context, s Session) { got = append(got, s) })

	ctx := context.Background()
	assert.True(t, tr.Observe(ctx, &Session{UserID: "1", Email: "Ada@example.org"}))
	assert.False(t, tr.Observe(ctx, &Session{UserID: "1", Email: "ada@example.org"}))
	assert.True(t, tr.Observe(ctx, &Session{UserID: "2", Email: "bob@example.org"}))
	assert.False(t, tr.Observe(ctx, nil))

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[1].UserID)
}

func TestTrackerUnsubscribeAndForget(t *testing.T) {
	tr := NewTracker()
	calls := 0
	unsubscribe := tr.Subscribe(func(context.Context, Session) { calls++ })

	s := &Session{Email: "ada@example.org"}
	tr.Observe(context.Background(), s)
	tr.Forget(s)
	tr.Observe(context.Background(), s)
	assert.Equal(t, 2, calls)

	unsubscribe()
	tr.Forget(s)
	tr.Observe(context.Background(), s)
	assert.Equal(t, 2, calls)
}

func TestTrackerConcurrentObserve(t *testing.T) {
	tr := NewTracker()
	var mu sync.Mutex
	calls := 0
	tr.Subscribe(func(context.Context, Session) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Observe(context.Background(), &Session{Email: "same@example.org"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestTrackerEvictsLeastRecentlySeen(t *testing.T) {
	tr := NewTrackerSize(2)
	var got []string
	tr.Subscribe(func(_ context.Context, s Session) { got = append(got, s.Email) })

	ctx := context.Background()
	ada := &Session{Email: "ada@example.org"}
	bob := &Session{Email: "bob@example.org"}
	eve := &Session{Email: "eve@example.org"}

	assert.True(t, tr.Observe(ctx, ada))
	assert.True(t, tr.Observe(ctx, bob))
	assert.False(t, tr.Observe(ctx, ada), "ada is now the most recent")
	assert.True(t, tr.Observe(ctx, eve), "bob is evicted")

	assert.False(t, tr.Observe(ctx, ada))
	assert.True(t, tr.Observe(ctx, bob), "an evicted identity notifies again")
	assert.Equal(t, []string{"ada@example.org", "bob@example.org", "eve@example.org", "bob@example.org"}, got)
}

func TestNewTrackerSizeFloor(t *testing.T) {
	tr := NewTrackerSize(0)
	ctx := context.Background()
	assert.True(t, tr.Observe(ctx, &Session{Email: "ada@example.org"}))
	assert.False(t, tr.Observe(ctx, &Session{Email: "ada@example.org"}))
	assert.True(t, tr.Observe(ctx, &Session{Email: "bob@example.org"}))
	assert.True(t, tr.Observe(ctx, &Session{Email: "ada@example.org"}))
}
