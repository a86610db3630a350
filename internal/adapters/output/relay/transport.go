package relay

import (
	"context"
	"log"
	"time"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/payload"
	"lumina-core/internal/metrics"
	"lumina-core/internal/ports"
)

const (
	// DefaultPollInterval and DefaultCommandTimeout bound the
	// enqueue-then-poll protocol. Every operation on this transport
	// resolves within commandTimeout + one poll interval.
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultCommandTimeout = 30 * time.Second
)

// Transport reaches a device that is not directly routable by writing
// commands into a shared durable queue and polling the record until the
// executing side (a bridge near the device) transitions it to a
// terminal status. The queue record is the single source of truth for
// completion; this side never writes result or status except to mark
// its own local timeout.
type Transport struct {
	store        ports.CommandStore
	controllerID string

	pollInterval   time.Duration
	commandTimeout time.Duration

	rgbw      bool
	rgbwKnown bool
}

type Option func(*Transport)

// WithTiming overrides the poll interval and completion ceiling; tests
// shrink both.
func WithTiming(pollInterval, commandTimeout time.Duration) Option {
	return func(t *Transport) {
		t.pollInterval = pollInterval
		t.commandTimeout = commandTimeout
	}
}

func NewTransport(store ports.CommandStore, controllerID string, opts ...Option) *Transport {
	t := &Transport{
		store:          store,
		controllerID:   controllerID,
		pollInterval:   DefaultPollInterval,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// executeCommand queues one command and polls until it is terminal, the
// ceiling elapses, or ctx is cancelled. Cancellation stops polling but
// does not retract the queued command. Returns the result map, or nil
// for every failure mode.
func (t *Transport) executeCommand(ctx context.Context, typ model.CommandType, p map[string]interface{}) map[string]interface{} {
	id, err := t.store.Enqueue(ctx, &model.Command{
		ControllerID: t.controllerID,
		Type:         typ,
		Payload:      p,
	})
	if err != nil {
		// A failed enqueue is a hard failure; there is no retry here.
		log.Printf("relay: enqueue %s: %v", typ, err)
		return nil
	}
	metrics.RelayCommandQueued()

	deadline := time.Now().Add(t.commandTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.pollInterval):
		}

		cmd, err := t.store.Get(ctx, id)
		if err != nil {
			log.Printf("relay: poll %s: %v", id, err)
		} else if cmd.Status.Terminal() {
			switch cmd.Status {
			case model.CommandCompleted:
				metrics.RelayCommandResult(metrics.ResultCompleted)
				if cmd.Result == nil {
					return map[string]interface{}{}
				}
				return cmd.Result
			case model.CommandTimeout:
				metrics.RelayCommandResult(metrics.ResultTimeout)
				return nil
			default:
				metrics.RelayCommandResult(metrics.ResultFailed)
				log.Printf("relay: command %s failed: %s", id, cmd.Error)
				return nil
			}
		}

		if !time.Now().Before(deadline) {
			// Best-effort marker; failing to mark is diagnostic only.
			if err := t.store.UpdateStatus(ctx, id, model.CommandTimeout, nil, ""); err != nil {
				log.Printf("relay: mark timeout %s: %v", id, err)
			}
			metrics.RelayCommandResult(metrics.ResultTimeout)
			return nil
		}
	}
}

func (t *Transport) executeBool(ctx context.Context, typ model.CommandType, p map[string]interface{}) bool {
	return t.executeCommand(ctx, typ, p) != nil
}

// GetState is itself a queued command with an empty payload; there is
// no separate read path through the relay.
func (t *Transport) GetState(ctx context.Context) *model.DeviceState {
	result := t.executeCommand(ctx, model.CommandGetState, map[string]interface{}{})
	if result == nil {
		return nil
	}
	return model.StateFromMap(result)
}

func (t *Transport) SetState(ctx context.Context, update model.StateUpdate) bool {
	rgbw := false
	if update.Color != nil {
		rgbw = t.SupportsRGBW(ctx)
	}
	return t.executeBool(ctx, model.CommandSetState, payload.BuildStateUpdate(update, rgbw))
}

func (t *Transport) ApplyJSON(ctx context.Context, p map[string]interface{}) bool {
	return t.executeBool(ctx, model.CommandApplyJSON, payload.Normalize(p))
}

func (t *Transport) ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool {
	return t.executeBool(ctx, model.CommandApplyConfig, cfg)
}

func (t *Transport) FetchSegments(ctx context.Context) []model.Segment {
	result := t.executeCommand(ctx, model.CommandGetState, map[string]interface{}{})
	if result == nil {
		return nil
	}
	seg, ok := result["seg"]
	if !ok {
		return nil
	}
	return model.SegmentsFromValue(seg)
}

func (t *Transport) RenameSegment(ctx context.Context, id int, name string) bool {
	return t.executeBool(ctx, model.CommandRenameSegment, payload.BuildSegmentRename(id, name))
}

func (t *Transport) ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool {
	if len(ids) == 0 {
		return false
	}
	return t.executeBool(ctx, model.CommandApplyToSegments, payload.BuildSegmentApply(ids, seg))
}

func (t *Transport) SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return t.executeBool(ctx, model.CommandSavePreset, payload.BuildPresetSave(id, state, name))
}

func (t *Transport) LoadPreset(ctx context.Context, id int) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return t.executeBool(ctx, model.CommandLoadPreset, payload.BuildPresetLoad(id))
}

// SupportsRGBW rides the getInfo command once and caches the answer.
func (t *Transport) SupportsRGBW(ctx context.Context) bool {
	if t.rgbwKnown {
		return t.rgbw
	}
	result := t.executeCommand(ctx, model.CommandGetInfo, map[string]interface{}{})
	if result == nil {
		return false
	}
	info := model.InfoFromMap(result)
	if info == nil {
		return false
	}
	t.rgbw = info.RGBW
	t.rgbwKnown = true
	return t.rgbw
}

func (t *Transport) LEDCount(ctx context.Context) int {
	result := t.executeCommand(ctx, model.CommandGetInfo, map[string]interface{}{})
	if result == nil {
		return 0
	}
	info := model.InfoFromMap(result)
	if info == nil {
		return 0
	}
	return info.LEDCount
}

// UploadLEDMap cannot ride the relay: the executing side has no way to
// carry a file body, so queuing it would create a command that can
// never complete. Fail fast instead.
func (t *Transport) UploadLEDMap(ctx context.Context, path string, data []byte) bool {
	return false
}
