package workers

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/domain"
	"batepapo-uol-api/errors"
	"batepapo-uol-api/mocks"
	"batepapo-uol-api/observability"
	"batepapo-uol-api/repositories"
	"batepapo-uol-api/runtime"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// evicting mimics a registry evicting names, running the callback for each.
func evicting(names ...string) func(context.Context, time.Duration, contract.EvictFunc) ([]string, error) {
	return func(_ context.Context, _ time.Duration, onEvict contract.EvictFunc) ([]string, error) {
		for _, name := range names {
			onEvict(name)
		}
		return names, nil
	}
}

func TestPresenceSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should announce every evicted participant", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockIRegistry(ctrl)
		messageLog := mocks.NewMockIMessageLog(ctrl)
		monitoring := observability.NewMonitoringManager(log, time.Second)
		sweeper := NewPresenceSweeper(log, registry, messageLog, monitoring, time.Second, 10*time.Second)

		registry.EXPECT().EvictStaleOlderThan(gomock.Any(), 10*time.Second, gomock.Any()).DoAndReturn(evicting("Ann", "Bob"))
		messageLog.EXPECT().Append(gomock.Any(), domain.NewLeaveEvent("Ann")).Return(domain.Event{}, nil)
		messageLog.EXPECT().Append(gomock.Any(), domain.NewLeaveEvent("Bob")).Return(domain.Event{}, nil)

		evicted := sweeper.Sweep(ctx)
		req.Equal([]string{"Ann", "Bob"}, evicted)
		req.Equal(uint64(2), monitoring.GetLatest().ParticipantsEvicted)
	})

	t.Run("should keep announcing after a failed append", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockIRegistry(ctrl)
		messageLog := mocks.NewMockIMessageLog(ctrl)
		monitoring := observability.NewMonitoringManager(log, time.Second)
		sweeper := NewPresenceSweeper(log, registry, messageLog, monitoring, time.Second, 10*time.Second)

		registry.EXPECT().EvictStaleOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(evicting("Ann", "Bob", "Carol"))
		gomock.InOrder(
			messageLog.EXPECT().Append(gomock.Any(), domain.NewLeaveEvent("Ann")).Return(domain.Event{}, nil),
			messageLog.EXPECT().Append(gomock.Any(), domain.NewLeaveEvent("Bob")).Return(domain.Event{}, errors.ErrStorage),
			messageLog.EXPECT().Append(gomock.Any(), domain.NewLeaveEvent("Carol")).Return(domain.Event{}, nil),
		)

		evicted := sweeper.Sweep(ctx)
		req.Len(evicted, 3)
		req.Equal(uint64(1), monitoring.GetLatest().SweepFailures)
	})

	t.Run("should not append anything when the registry fails", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockIRegistry(ctrl)
		messageLog := mocks.NewMockIMessageLog(ctrl)
		sweeper := NewPresenceSweeper(log, registry, messageLog, nil, time.Second, 10*time.Second)

		registry.EXPECT().EvictStaleOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.ErrStorage)
		messageLog.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

		req.Nil(sweeper.Sweep(ctx))
	})
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPresenceSweeper_Evicts_Idle_Participant_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	registry := runtime.NewRegistry(log, repositories.NewParticipantRepository(db, log), runtime.WithClock(clock.Now))
	messageRepository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	defer messageRepository.Close()
	messageLog := runtime.NewMessageLog(log, messageRepository, clock.Now)
	sweeper := NewPresenceSweeper(log, registry, messageLog, nil, 15*time.Second, 10*time.Second)

	_, err = registry.Register(ctx, "Ann")
	req.NoError(err)
	_, err = registry.Register(ctx, "Bob")
	req.NoError(err)

	// Bob stays active, Ann goes quiet
	clock.Advance(9 * time.Second)
	req.NoError(registry.Touch(ctx, "Bob"))
	clock.Advance(6 * time.Second)

	req.Equal([]string{"Ann"}, sweeper.Sweep(ctx))
	// A second pass must not announce Ann again
	req.Empty(sweeper.Sweep(ctx))

	participants, err := registry.List(ctx)
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal("Bob", participants[0].Name)

	events, err := messageLog.ReadAll(ctx)
	req.NoError(err)
	req.Len(events, 1)
	req.Equal("Ann", events[0].From)
	req.Equal(domain.Everyone, events[0].To)
	req.Equal(domain.LeaveText, events[0].Text)
	req.Equal(domain.KindStatus, events[0].Kind)
	req.True(clock.Now().Equal(events[0].Time))
}

func TestPresenceSweeper_Run_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	messageLog := mocks.NewMockIMessageLog(ctrl)
	registry.EXPECT().EvictStaleOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).MinTimes(1)

	sweeper := NewPresenceSweeper(slog.Default(), registry, messageLog, nil, 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := sweeper.Run(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
}

// gatedLog blocks leave appends until release is closed.
type gatedLog struct {
	contract.IMessageLog
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLog) Append(ctx context.Context, e domain.Event) (domain.Event, error) {
	if e.Text == domain.LeaveText {
		close(g.entered)
		<-g.release
	}
	return g.IMessageLog.Append(ctx, e)
}

func TestPresenceSweeper_Leave_Precedes_Rejoin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	registry := runtime.NewRegistry(log, repositories.NewParticipantRepository(db, log), runtime.WithClock(clock.Now))
	messageRepository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	defer messageRepository.Close()
	messageLog := runtime.NewMessageLog(log, messageRepository, clock.Now)
	gated := &gatedLog{IMessageLog: messageLog, entered: make(chan struct{}), release: make(chan struct{})}
	sweeper := NewPresenceSweeper(log, registry, gated, nil, 15*time.Second, 10*time.Second)

	_, err = registry.Register(ctx, "Ann")
	req.NoError(err)
	_, err = messageLog.Append(ctx, domain.NewJoinEvent("Ann"))
	req.NoError(err)
	clock.Advance(11 * time.Second)

	swept := make(chan []string, 1)
	go func() { swept <- sweeper.Sweep(ctx) }()
	<-gated.entered

	// Ann comes back while her departure is still being written
	rejoined := make(chan error, 1)
	go func() {
		if _, err := registry.Register(ctx, "Ann"); err != nil {
			rejoined <- err
			return
		}
		_, err := messageLog.Append(ctx, domain.NewJoinEvent("Ann"))
		rejoined <- err
	}()

	select {
	case <-rejoined:
		req.Fail("register must wait for the pending leave announcement")
	case <-time.After(50 * time.Millisecond):
	}
	close(gated.release)

	req.Equal([]string{"Ann"}, <-swept)
	req.NoError(<-rejoined)

	exists, err := registry.Exists(ctx, "Ann")
	req.NoError(err)
	req.True(exists)

	events, err := messageLog.ReadAll(ctx)
	req.NoError(err)
	req.Len(events, 3)
	req.Equal(domain.JoinText, events[0].Text)
	req.Equal(domain.LeaveText, events[1].Text)
	req.Equal(domain.JoinText, events[2].Text)
}
