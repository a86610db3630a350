package service

import (
	"context"
	"log"
	"sync"
	"time"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/payload"
	"lumina-core/internal/ports"
)

const (
	// probeTTL is how long one local reachability answer is trusted
	// before the next call probes again.
	probeTTL = 30 * time.Second

	// settleDelay keeps the background poller quiet after a write so
	// it doesn't read back a state the device hasn't applied yet.
	settleDelay = 500 * time.Millisecond
)

// ControllerService composes the three JSON transports and the stream
// session behind one contract. Per call it selects the cheapest
// transport the current connectivity allows: direct when the device
// answers on the LAN, the authenticated broker path when away from
// home, the durable relay queue otherwise.
//
// Each transport keeps its own state view; the service never copies
// snapshots between them.
type ControllerService struct {
	local      ports.Controller
	localProbe ports.Reachable
	relay      ports.Controller
	cloud      ports.CloudController
	stream     ports.StreamSession

	mu          sync.Mutex
	localOK     bool
	lastProbe   time.Time
	writeCount  int
	lastWriteAt time.Time

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

func NewControllerService(local ports.Controller, localProbe ports.Reachable, relay ports.Controller, cloud ports.CloudController, stream ports.StreamSession) *ControllerService {
	return &ControllerService{
		local:      local,
		localProbe: localProbe,
		relay:      relay,
		cloud:      cloud,
		stream:     stream,
	}
}

// pick chooses the transport for one call. Retries across transports
// are deliberately not attempted here; a failed call reports false and
// the caller decides.
func (s *ControllerService) pick(ctx context.Context) ports.Controller {
	if s.local != nil && s.localReachable(ctx) {
		return s.local
	}
	if s.cloud != nil && s.cloud.IsAuthenticated() {
		return s.cloud
	}
	if s.relay != nil {
		return s.relay
	}
	return s.local
}

func (s *ControllerService) localReachable(ctx context.Context) bool {
	if s.localProbe == nil {
		return false
	}
	s.mu.Lock()
	fresh := time.Since(s.lastProbe) < probeTTL
	ok := s.localOK
	s.mu.Unlock()
	if fresh {
		return ok
	}

	ok = s.localProbe.Reachable(ctx)
	s.mu.Lock()
	s.localOK = ok
	s.lastProbe = time.Now()
	s.mu.Unlock()
	return ok
}

// streamingActive gates JSON color/effect writes: while a stream
// session owns the device, those writes are skipped and logged, never
// escalated, so the HTTP and UDP paths cannot fight over pixels.
func (s *ControllerService) streamingActive(op string) bool {
	if s.stream != nil && s.stream.Active() {
		log.Printf("controller: %s skipped, stream session active", op)
		return true
	}
	return false
}

func (s *ControllerService) beginWrite() {
	s.mu.Lock()
	s.writeCount++
	s.mu.Unlock()
}

func (s *ControllerService) endWrite() {
	s.mu.Lock()
	s.writeCount--
	s.lastWriteAt = time.Now()
	s.mu.Unlock()
}

// pollQuiet reports whether the background poller should skip this
// cycle: a write is in flight, or one finished within the settle delay.
func (s *ControllerService) pollQuiet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCount > 0 || time.Since(s.lastWriteAt) < settleDelay
}

func (s *ControllerService) GetState(ctx context.Context) *model.DeviceState {
	return s.pick(ctx).GetState(ctx)
}

func (s *ControllerService) SetState(ctx context.Context, update model.StateUpdate) bool {
	if s.streamingActive("setState") {
		return false
	}
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).SetState(ctx, update)
}

func (s *ControllerService) ApplyJSON(ctx context.Context, p map[string]interface{}) bool {
	if s.streamingActive("applyJson") {
		return false
	}
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).ApplyJSON(ctx, p)
}

func (s *ControllerService) ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool {
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).ApplyConfig(ctx, cfg)
}

func (s *ControllerService) FetchSegments(ctx context.Context) []model.Segment {
	return s.pick(ctx).FetchSegments(ctx)
}

func (s *ControllerService) RenameSegment(ctx context.Context, id int, name string) bool {
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).RenameSegment(ctx, id, name)
}

func (s *ControllerService) ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool {
	if s.streamingActive("applyToSegments") {
		return false
	}
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).ApplyToSegments(ctx, ids, seg)
}

func (s *ControllerService) SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool {
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).SavePreset(ctx, id, state, name)
}

func (s *ControllerService) LoadPreset(ctx context.Context, id int) bool {
	if s.streamingActive("loadPreset") {
		return false
	}
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).LoadPreset(ctx, id)
}

func (s *ControllerService) SupportsRGBW(ctx context.Context) bool {
	return s.pick(ctx).SupportsRGBW(ctx)
}

func (s *ControllerService) LEDCount(ctx context.Context) int {
	return s.pick(ctx).LEDCount(ctx)
}

func (s *ControllerService) UploadLEDMap(ctx context.Context, path string, data []byte) bool {
	s.beginWrite()
	defer s.endWrite()
	return s.pick(ctx).UploadLEDMap(ctx, path, data)
}

// ConfigureSyncSender toggles UDP sync broadcast on the device.
func (s *ControllerService) ConfigureSyncSender(ctx context.Context, enabled bool) bool {
	return s.ApplyConfig(ctx, payload.BuildSyncSenderConfig(enabled))
}

// ConfigureSyncReceiver toggles whether the device follows UDP sync.
func (s *ControllerService) ConfigureSyncReceiver(ctx context.Context, enabled bool) bool {
	return s.ApplyConfig(ctx, payload.BuildSyncReceiverConfig(enabled))
}

// StartStream hands the device to the UDP session. JSON color writes
// stay suppressed until StopStream.
func (s *ControllerService) StartStream(ctx context.Context) bool {
	if s.stream == nil {
		return false
	}
	if err := s.stream.Start(ctx); err != nil {
		log.Printf("controller: start stream: %v", err)
		return false
	}
	return true
}

func (s *ControllerService) StopStream() {
	if s.stream != nil {
		s.stream.Stop()
	}
}

// StartPolling launches the background state poller. The poller reads
// through the same transport selection as everything else, suspends
// itself while writes are outstanding, and resumes after the settle
// delay. onState receives every non-nil snapshot.
func (s *ControllerService) StartPolling(interval time.Duration, onState func(*model.DeviceState)) {
	s.StopPolling()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.pollCancel = cancel
	s.pollDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.pollQuiet() {
					continue
				}
				if st := s.GetState(ctx); st != nil && onState != nil {
					onState(st)
				}
			}
		}
	}()
}

func (s *ControllerService) StopPolling() {
	s.mu.Lock()
	cancel, done := s.pollCancel, s.pollDone
	s.pollCancel, s.pollDone = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
