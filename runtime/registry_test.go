package runtime

import (
	"batepapo-uol-api/errors"
	"batepapo-uol-api/repositories"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRegistry(t *testing.T, clock *fakeClock) *Registry {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	repository := repositories.NewParticipantRepository(openTestDB(t), log)
	return NewRegistry(log, repository, WithClock(clock.Now))
}

func TestRegistry_Register_Twice_Yields_Conflict(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := newTestRegistry(t, newFakeClock())

	participant, err := registry.Register(ctx, "Ann")
	req.NoError(err)
	req.Equal("Ann", participant.Name)

	_, err = registry.Register(ctx, "Ann")
	req.ErrorIs(err, errors.ErrParticipantAlreadyExists)

	participants, err := registry.List(ctx)
	req.NoError(err)
	req.Len(participants, 1)
}

func TestRegistry_Concurrent_Register_Has_One_Winner(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	registry := NewRegistry(log, repositories.NewParticipantRepository(openTestDB(t), log))

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Register(ctx, "Ann")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		req.ErrorIs(err, errors.ErrParticipantAlreadyExists)
	}
	req.Equal(1, succeeded)
}

func TestRegistry_Touch_Unknown_Participant(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, newFakeClock())

	err := registry.Touch(context.Background(), "Ghost")
	req.ErrorIs(err, errors.ErrParticipantNotFound)
}

func TestRegistry_Evict_Stale_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, clock)

	// Given two participants joining at the same time
	_, err := registry.Register(ctx, "Ann")
	req.NoError(err)
	_, err = registry.Register(ctx, "Bob")
	req.NoError(err)

	// When only Bob shows activity before the window elapses
	clock.Advance(8 * time.Second)
	req.NoError(registry.Touch(ctx, "Bob"))
	clock.Advance(4 * time.Second)

	evicted, err := registry.EvictStaleOlderThan(ctx, 10*time.Second, nil)
	req.NoError(err)

	// Then only Ann is evicted
	req.Equal([]string{"Ann"}, evicted)
	participants, err := registry.List(ctx)
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal("Bob", participants[0].Name)

	exists, err := registry.Exists(ctx, "Ann")
	req.NoError(err)
	req.False(exists)
}

func TestRegistry_Evict_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, clock)

	_, err := registry.Register(ctx, "Ann")
	req.NoError(err)
	clock.Advance(10 * time.Second)

	// Exactly at the boundary the participant is not older than the window
	evicted, err := registry.EvictStaleOlderThan(ctx, 10*time.Second, nil)
	req.NoError(err)
	req.Empty(evicted)
}

func TestRegistry_Evict_Calls_Back_For_Each_Name(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, clock)

	_, err := registry.Register(ctx, "Ann")
	req.NoError(err)
	_, err = registry.Register(ctx, "Bob")
	req.NoError(err)
	clock.Advance(11 * time.Second)

	var announced []string
	evicted, err := registry.EvictStaleOlderThan(ctx, 10*time.Second, func(name string) {
		// The participant is already gone when the callback runs
		exists, err := registry.Exists(ctx, name)
		req.NoError(err)
		req.False(exists)
		announced = append(announced, name)
	})
	req.NoError(err)
	req.ElementsMatch([]string{"Ann", "Bob"}, evicted)
	req.Equal(evicted, announced)
}

func TestRegistry_Concurrent_Touch_And_Evict(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, clock)

	for round := 0; round < 50; round++ {
		_, err := registry.Register(ctx, "Ann")
		req.NoError(err)
		// Ann sits just past the window, a touch and a sweep race for her
		clock.Advance(10*time.Second + time.Millisecond)

		var wg sync.WaitGroup
		var touchErr error
		var evicted []string
		var evictErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			touchErr = registry.Touch(ctx, "Ann")
		}()
		go func() {
			defer wg.Done()
			evicted, evictErr = registry.EvictStaleOlderThan(ctx, 10*time.Second, nil)
		}()
		wg.Wait()
		req.NoError(evictErr)

		exists, err := registry.Exists(ctx, "Ann")
		req.NoError(err)
		if touchErr == nil {
			// The refresh won: it must never be lost to the sweep
			req.Empty(evicted)
			req.True(exists)
			// Clear Ann for the next round
			clock.Advance(time.Millisecond)
			evicted, err = registry.EvictStaleOlderThan(ctx, 0, nil)
			req.NoError(err)
			req.Equal([]string{"Ann"}, evicted)
		} else {
			req.ErrorIs(touchErr, errors.ErrParticipantNotFound)
			req.Equal([]string{"Ann"}, evicted)
			req.False(exists)
		}
	}
}

func TestRegistry_List_Keeps_Join_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, clock)

	for _, name := range []string{"Zoe", "Ann", "Mia"} {
		_, err := registry.Register(ctx, name)
		req.NoError(err)
		clock.Advance(time.Millisecond)
	}

	participants, err := registry.List(ctx)
	req.NoError(err)
	req.Equal("Zoe", participants[0].Name)
	req.Equal("Ann", participants[1].Name)
	req.Equal("Mia", participants[2].Name)
}
