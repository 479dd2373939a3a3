package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
)

type fakeSource struct {
	out          chan Snapshot[string]
	subscribeErr error
	lastUser     string
	subscribed   int
}

func (f *fakeSource) Subscribe(ctx context.Context, userID string) (<-chan Snapshot[string], error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscribed++
	f.lastUser = userID

	out := make(chan Snapshot[string])
	f.out = out
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func waitTick(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot notification")
	}
}

func newTestSync(source Source[string], bus *errbus.Bus) *CollectionSync[string] {
	return NewCollectionSync[string](source, bus, "inventory_items", zap.NewNop())
}

func TestSnapshotReplacesWholesale(t *testing.T) {
	source := &fakeSource{}
	sync := newTestSync(source, errbus.New())

	require.NoError(t, sync.Start(context.Background(), "user-1"))
	defer sync.Stop()

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	source.out <- Snapshot[string]{Docs: []string{"brisket", "ribeye", "pork belly"}}
	waitTick(t, updates)

	source.out <- Snapshot[string]{Docs: []string{"lamb shank"}}
	waitTick(t, updates)

	items, version := sync.Items()
	assert.Equal(t, []string{"lamb shank"}, items)
	assert.Equal(t, uint64(2), version)
}

func TestLoadingFlipsOnceAndStaysOff(t *testing.T) {
	source := &fakeSource{}
	sync := newTestSync(source, errbus.New())

	require.NoError(t, sync.Start(context.Background(), "user-1"))
	defer sync.Stop()
	assert.True(t, sync.Loading())

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	source.out <- Snapshot[string]{Docs: []string{"ribeye"}}
	waitTick(t, updates)
	assert.False(t, sync.Loading())

	// Later refreshes are silent: no loading flicker.
	source.out <- Snapshot[string]{Docs: []string{"ribeye", "brisket"}}
	waitTick(t, updates)
	assert.False(t, sync.Loading())
}

func TestStartWithoutUserStaysIdle(t *testing.T) {
	source := &fakeSource{}
	sync := newTestSync(source, errbus.New())

	require.NoError(t, sync.Start(context.Background(), ""))

	items, _ := sync.Items()
	assert.Empty(t, items)
	assert.False(t, sync.Loading())
	assert.Equal(t, 0, source.subscribed)
}

func TestStopClearsSnapshot(t *testing.T) {
	source := &fakeSource{}
	sync := newTestSync(source, errbus.New())

	require.NoError(t, sync.Start(context.Background(), "user-1"))

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	source.out <- Snapshot[string]{Docs: []string{"ribeye"}}
	waitTick(t, updates)

	sync.Stop()

	items, _ := sync.Items()
	assert.Empty(t, items)
	assert.False(t, sync.Loading())
}

func TestUserSwitchTearsDownPreviousSubscription(t *testing.T) {
	source := &fakeSource{}
	sync := newTestSync(source, errbus.New())

	require.NoError(t, sync.Start(context.Background(), "user-1"))

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	source.out <- Snapshot[string]{Docs: []string{"user-1 item"}}
	waitTick(t, updates)

	require.NoError(t, sync.Start(context.Background(), "user-2"))
	defer sync.Stop()

	assert.Equal(t, 2, source.subscribed)
	assert.Equal(t, "user-2", source.lastUser)

	// Nothing from the first user may survive the switch.
	items, _ := sync.Items()
	assert.Empty(t, items)
}

func TestSubscribeFailurePublishesListFailure(t *testing.T) {
	bus := errbus.New()
	var failures []errbus.WriteFailure
	bus.Subscribe(func(f errbus.WriteFailure) { failures = append(failures, f) })

	source := &fakeSource{subscribeErr: errors.New("permission denied")}
	sync := newTestSync(source, bus)

	err := sync.Start(context.Background(), "user-1")
	assert.Error(t, err)
	assert.False(t, sync.Loading())

	items, _ := sync.Items()
	assert.Empty(t, items)

	require.Len(t, failures, 1)
	assert.Equal(t, errbus.OpList, failures[0].Operation)
	assert.Equal(t, "inventory_items", failures[0].Path)
}

func TestMidStreamErrorPublishesListFailure(t *testing.T) {
	bus := errbus.New()
	failures := make(chan errbus.WriteFailure, 1)
	bus.Subscribe(func(f errbus.WriteFailure) { failures <- f })

	source := &fakeSource{}
	sync := newTestSync(source, bus)

	require.NoError(t, sync.Start(context.Background(), "user-1"))
	defer sync.Stop()

	updates, unsubscribe := sync.Updates()
	defer unsubscribe()

	source.out <- Snapshot[string]{Err: errors.New("stream lost")}
	waitTick(t, updates)

	select {
	case f := <-failures:
		assert.Equal(t, errbus.OpList, f.Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a list failure on the bus")
	}
	assert.False(t, sync.Loading())
}
