package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumina-core/internal/domain/model"
)

// fakeStore is an in-memory queue whose records transition according to
// the script installed per test.
type fakeStore struct {
	mu       sync.Mutex
	commands map[string]*model.Command
	enqueued []*model.Command
	next     int

	// onGet mutates the record before it is returned, simulating the
	// executing side.
	onGet func(cmd *model.Command)

	enqueueErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{commands: map[string]*model.Command{}}
}

func (s *fakeStore) Enqueue(ctx context.Context, cmd *model.Command) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return "", s.enqueueErr
	}
	s.next++
	id := fmt.Sprintf("cmd-%d", s.next)
	c := *cmd
	c.ID = id
	c.Status = model.CommandPending
	s.commands[id] = &c
	s.enqueued = append(s.enqueued, &c)
	return id, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*model.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, ok := s.commands[id]
	if !ok {
		return nil, fmt.Errorf("command %s not found", id)
	}
	if s.onGet != nil {
		s.onGet(cmd)
	}
	c := *cmd
	return &c, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status model.CommandStatus, result map[string]interface{}, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd, ok := s.commands[id]; ok {
		cmd.Status = status
		cmd.Result = result
		cmd.Error = errMsg
	}
	return nil
}

func (s *fakeStore) ListPending(ctx context.Context, controllerID string, limit int) ([]*model.Command, error) {
	return nil, nil
}

func (s *fakeStore) enqueuedTypes() []model.CommandType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]model.CommandType, 0, len(s.enqueued))
	for _, c := range s.enqueued {
		types = append(types, c.Type)
	}
	return types
}

func (s *fakeStore) status(id string) model.CommandStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd, ok := s.commands[id]; ok {
		return cmd.Status
	}
	return ""
}

func fastTransport(store *fakeStore) *Transport {
	return NewTransport(store, "ctl-1", WithTiming(5*time.Millisecond, 100*time.Millisecond))
}

func completeOnFirstGet(result map[string]interface{}) func(*model.Command) {
	return func(cmd *model.Command) {
		cmd.Status = model.CommandCompleted
		cmd.Result = result
	}
}

func TestRelay_CompletedCommand(t *testing.T) {
	store := newFakeStore()
	store.onGet = completeOnFirstGet(map[string]interface{}{"on": true, "bri": float64(128)})
	tr := fastTransport(store)

	st := tr.GetState(context.Background())

	assert.NotNil(t, st)
	assert.True(t, st.On)
	assert.Equal(t, 128, st.Brightness)
	assert.Equal(t, []model.CommandType{model.CommandGetState}, store.enqueuedTypes())
}

func TestRelay_FailedCommandYieldsFalse(t *testing.T) {
	store := newFakeStore()
	store.onGet = func(cmd *model.Command) {
		cmd.Status = model.CommandFailed
		cmd.Error = "device unreachable"
	}
	tr := fastTransport(store)

	on := true
	assert.False(t, tr.SetState(context.Background(), model.StateUpdate{On: &on}))
}

func TestRelay_EnqueueFailureIsHardFailure(t *testing.T) {
	store := newFakeStore()
	store.enqueueErr = fmt.Errorf("throttled")
	tr := fastTransport(store)

	assert.False(t, tr.LoadPreset(context.Background(), 5))
	assert.Nil(t, tr.GetState(context.Background()))
}

func TestRelay_TimeoutBounds(t *testing.T) {
	// The record never turns terminal; the call must give up no earlier
	// than the ceiling and no later than ceiling + one poll interval.
	store := newFakeStore()
	tr := fastTransport(store)

	start := time.Now()
	on := true
	ok := tr.SetState(context.Background(), model.StateUpdate{On: &on})
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
	// The stale record is marked so the executing side can skip it.
	assert.Equal(t, model.CommandTimeout, store.status("cmd-1"))
}

func TestRelay_ContextCancelStopsPolling(t *testing.T) {
	store := newFakeStore()
	tr := NewTransport(store, "ctl-1", WithTiming(5*time.Millisecond, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	assert.Nil(t, tr.GetState(ctx))
	assert.Less(t, time.Since(start), time.Second)
	// Cancellation does not retract the queued command.
	assert.Equal(t, model.CommandPending, store.status("cmd-1"))
}

func TestRelay_PresetBoundsCheckedBeforeQueueing(t *testing.T) {
	store := newFakeStore()
	tr := fastTransport(store)

	assert.False(t, tr.LoadPreset(context.Background(), 0))
	assert.False(t, tr.LoadPreset(context.Background(), 251))
	assert.False(t, tr.SavePreset(context.Background(), 300, map[string]interface{}{}, ""))
	assert.Empty(t, store.enqueuedTypes())
}

func TestRelay_ApplyToSegmentsEmptyTargets(t *testing.T) {
	store := newFakeStore()
	tr := fastTransport(store)

	assert.False(t, tr.ApplyToSegments(context.Background(), nil, map[string]interface{}{"fx": 1}))
	assert.Empty(t, store.enqueuedTypes())
}

func TestRelay_SupportsRGBWCachesAnswer(t *testing.T) {
	store := newFakeStore()
	store.onGet = completeOnFirstGet(map[string]interface{}{
		"leds": map[string]interface{}{"count": float64(60), "rgbw": true},
	})
	tr := fastTransport(store)

	assert.True(t, tr.SupportsRGBW(context.Background()))
	assert.True(t, tr.SupportsRGBW(context.Background()))
	// Only the first call rides the queue.
	assert.Equal(t, []model.CommandType{model.CommandGetInfo}, store.enqueuedTypes())
}

func TestRelay_FetchSegments(t *testing.T) {
	store := newFakeStore()
	store.onGet = completeOnFirstGet(map[string]interface{}{
		"seg": []interface{}{
			map[string]interface{}{"id": float64(0), "start": float64(0), "stop": float64(30)},
		},
	})
	tr := fastTransport(store)

	segs := tr.FetchSegments(context.Background())

	assert.Len(t, segs, 1)
	assert.Equal(t, 30, segs[0].LEDCount())
}

func TestRelay_UploadLEDMapUnsupported(t *testing.T) {
	store := newFakeStore()
	tr := fastTransport(store)

	assert.False(t, tr.UploadLEDMap(context.Background(), "ledmap.json", []byte("{}")))
	assert.Empty(t, store.enqueuedTypes())
}

func TestRelay_CompletedWithoutResultStillSucceeds(t *testing.T) {
	store := newFakeStore()
	store.onGet = func(cmd *model.Command) {
		cmd.Status = model.CommandCompleted
	}
	tr := fastTransport(store)

	assert.True(t, tr.LoadPreset(context.Background(), 10))
}
