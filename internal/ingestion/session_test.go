package ingestion

import (
	"sync"
	"testing"

	"milkportal/domain/ingestion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LatestGenerationWins(t *testing.T) {
	var s Session

	stale := s.Begin()
	fresh := s.Begin()
	require.Greater(t, fresh, stale)

	assert.True(t, s.Complete(fresh, ingestion.Result{Meta: ingestion.FileMeta{Name: "new.xlsx"}}))
	assert.False(t, s.Complete(stale, ingestion.Result{Meta: ingestion.FileMeta{Name: "old.xlsx"}}))

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "new.xlsx", current.Meta.Name)
	assert.Equal(t, fresh, current.Generation)
}

func TestSession_BeginClearsPreviousAttempt(t *testing.T) {
	var s Session
	gen := s.Begin()
	s.Complete(gen, ingestion.Result{})

	s.Begin()

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSession_ResetDropsInFlightParse(t *testing.T) {
	var s Session
	gen := s.Begin()

	s.Reset()

	assert.False(t, s.Complete(gen, ingestion.Result{}))
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSession_ConcurrentAttempts(t *testing.T) {
	var s Session
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen := s.Begin()
			s.Complete(gen, ingestion.Result{})
		}()
	}
	wg.Wait()

	current, ok := s.Current()
	next := s.Begin()
	if ok {
		assert.Equal(t, next-1, current.Generation)
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	a := store.Get("a@example.org")
	assert.Same(t, a, store.Get("a@example.org"))
	assert.NotSame(t, a, store.Get("b@example.org"))

	assert.Equal(t, 2, store.Len())

	gen := a.Begin()
	store.Drop("a@example.org")
	assert.Equal(t, 1, store.Len())
	assert.False(t, a.Complete(gen, ingestion.Result{}), "dropped session must not accept an in-flight result")
	assert.NotSame(t, a, store.Get("a@example.org"))

	store.Drop("missing@example.org")
	assert.Equal(t, 2, store.Len())
}
