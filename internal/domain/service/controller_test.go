package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumina-core/internal/domain/model"
)

// stubController records which operations hit it; every call succeeds.
type stubController struct {
	mu    sync.Mutex
	calls []string
	state *model.DeviceState
}

func (c *stubController) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
}

func (c *stubController) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *stubController) GetState(ctx context.Context) *model.DeviceState {
	c.record("getState")
	return c.state
}

func (c *stubController) SetState(ctx context.Context, update model.StateUpdate) bool {
	c.record("setState")
	return true
}

func (c *stubController) ApplyJSON(ctx context.Context, p map[string]interface{}) bool {
	c.record("applyJson")
	return true
}

func (c *stubController) ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool {
	c.record("applyConfig")
	return true
}

func (c *stubController) FetchSegments(ctx context.Context) []model.Segment {
	c.record("fetchSegments")
	return nil
}

func (c *stubController) RenameSegment(ctx context.Context, id int, name string) bool {
	c.record("renameSegment")
	return true
}

func (c *stubController) ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool {
	c.record("applyToSegments")
	return true
}

func (c *stubController) SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool {
	c.record("savePreset")
	return true
}

func (c *stubController) LoadPreset(ctx context.Context, id int) bool {
	c.record("loadPreset")
	return true
}

func (c *stubController) SupportsRGBW(ctx context.Context) bool { c.record("supportsRgbw"); return false }
func (c *stubController) LEDCount(ctx context.Context) int      { c.record("ledCount"); return 0 }

func (c *stubController) UploadLEDMap(ctx context.Context, path string, data []byte) bool {
	c.record("uploadLedMap")
	return true
}

type stubCloud struct {
	stubController
	authenticated bool
}

func (c *stubCloud) IsAuthenticated() bool { return c.authenticated }

type stubProbe struct {
	reachable bool
	probes    atomic.Int64
}

func (p *stubProbe) Reachable(ctx context.Context) bool {
	p.probes.Add(1)
	return p.reachable
}

type stubStream struct {
	active   bool
	startErr error
	started  int
	stopped  int
}

func (s *stubStream) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.active = true
	s.started++
	return nil
}

func (s *stubStream) Stop() {
	s.active = false
	s.stopped++
}

func (s *stubStream) Active() bool { return s.active }

func (s *stubStream) SendFrame(pixels []model.Color) bool { return s.active }

func TestSelector_PrefersLocalWhenReachable(t *testing.T) {
	local := &stubController{}
	cloud := &stubCloud{authenticated: true}
	relay := &stubController{}
	svc := NewControllerService(local, &stubProbe{reachable: true}, relay, cloud, nil)

	on := true
	assert.True(t, svc.SetState(context.Background(), model.StateUpdate{On: &on}))
	assert.Equal(t, 1, local.callCount())
	assert.Equal(t, 0, cloud.callCount())
	assert.Equal(t, 0, relay.callCount())
}

func TestSelector_FallsBackToCloudThenRelay(t *testing.T) {
	local := &stubController{}
	cloud := &stubCloud{authenticated: true}
	relay := &stubController{}
	svc := NewControllerService(local, &stubProbe{reachable: false}, relay, cloud, nil)

	svc.GetState(context.Background())
	assert.Equal(t, 0, local.callCount())
	assert.Equal(t, 1, cloud.callCount())

	cloud.authenticated = false
	svc.GetState(context.Background())
	assert.Equal(t, 1, relay.callCount())
}

func TestSelector_ProbeAnswerIsCached(t *testing.T) {
	local := &stubController{}
	probe := &stubProbe{reachable: true}
	svc := NewControllerService(local, probe, &stubController{}, nil, nil)

	for i := 0; i < 5; i++ {
		svc.GetState(context.Background())
	}

	assert.Equal(t, int64(1), probe.probes.Load())
}

func TestStreaming_SuppressesColorWrites(t *testing.T) {
	local := &stubController{}
	str := &stubStream{}
	svc := NewControllerService(local, &stubProbe{reachable: true}, nil, nil, str)

	assert.True(t, svc.StartStream(context.Background()))

	on := true
	assert.False(t, svc.SetState(context.Background(), model.StateUpdate{On: &on}))
	assert.False(t, svc.ApplyJSON(context.Background(), map[string]interface{}{"on": true}))
	assert.False(t, svc.ApplyToSegments(context.Background(), []int{0}, map[string]interface{}{"fx": 1}))
	assert.False(t, svc.LoadPreset(context.Background(), 5))
	assert.Equal(t, 0, local.callCount())

	// Reads and config writes stay allowed during streaming.
	svc.GetState(context.Background())
	assert.True(t, svc.ApplyConfig(context.Background(), map[string]interface{}{}))
	assert.Equal(t, 2, local.callCount())

	svc.StopStream()
	assert.True(t, svc.SetState(context.Background(), model.StateUpdate{On: &on}))
}

func TestStreaming_StartFailureReportsFalse(t *testing.T) {
	str := &stubStream{startErr: context.DeadlineExceeded}
	svc := NewControllerService(&stubController{}, &stubProbe{reachable: true}, nil, nil, str)

	assert.False(t, svc.StartStream(context.Background()))
	assert.False(t, str.Active())
}

func TestStreaming_NoSessionConfigured(t *testing.T) {
	svc := NewControllerService(&stubController{}, &stubProbe{reachable: true}, nil, nil, nil)
	assert.False(t, svc.StartStream(context.Background()))
	svc.StopStream()
}

func TestConfigureSync(t *testing.T) {
	local := &stubController{}
	svc := NewControllerService(local, &stubProbe{reachable: true}, nil, nil, nil)

	assert.True(t, svc.ConfigureSyncSender(context.Background(), true))
	assert.True(t, svc.ConfigureSyncReceiver(context.Background(), false))
	assert.Equal(t, []string{"applyConfig", "applyConfig"}, local.calls)
}

func TestPolling_DeliversSnapshots(t *testing.T) {
	local := &stubController{state: &model.DeviceState{On: true, Brightness: 80}}
	svc := NewControllerService(local, &stubProbe{reachable: true}, nil, nil, nil)

	var got atomic.Int64
	svc.StartPolling(5*time.Millisecond, func(st *model.DeviceState) {
		assert.True(t, st.On)
		got.Add(1)
	})
	defer svc.StopPolling()

	assert.Eventually(t, func() bool { return got.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPolling_SuspendedAfterWrite(t *testing.T) {
	local := &stubController{state: &model.DeviceState{On: true}}
	svc := NewControllerService(local, &stubProbe{reachable: true}, nil, nil, nil)

	on := true
	svc.SetState(context.Background(), model.StateUpdate{On: &on})

	var polled atomic.Int64
	svc.StartPolling(5*time.Millisecond, func(*model.DeviceState) { polled.Add(1) })
	defer svc.StopPolling()

	// Within the settle window the poller must stay quiet.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), polled.Load())

	// After the settle delay it resumes.
	assert.Eventually(t, func() bool { return polled.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPolling_StopIsIdempotent(t *testing.T) {
	svc := NewControllerService(&stubController{}, &stubProbe{reachable: true}, nil, nil, nil)
	svc.StopPolling()
	svc.StartPolling(time.Hour, nil)
	svc.StopPolling()
	svc.StopPolling()
}
