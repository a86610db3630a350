package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/payload"
	"lumina-core/internal/metrics"
	"lumina-core/internal/ports"
)

// Executor is the executing side of the relay queue: it runs next to
// the device, drains pending commands from the shared store, proxies
// them onto the device's JSON surface, and writes terminal status and
// result back. The queueing side polls that record; the executor never
// talks to the caller directly.
type Executor struct {
	store        ports.CommandStore
	device       ports.DeviceGateway
	controllerID string
	maxPerPoll   int

	processed atomic.Int64
	failed    atomic.Int64
}

func NewExecutor(store ports.CommandStore, device ports.DeviceGateway, controllerID string, maxPerPoll int) *Executor {
	if maxPerPoll <= 0 {
		maxPerPoll = 5
	}
	return &Executor{
		store:        store,
		device:       device,
		controllerID: controllerID,
		maxPerPoll:   maxPerPoll,
	}
}

// Stats returns how many commands this executor has completed and
// failed since start.
func (e *Executor) Stats() (processed, failed int64) {
	return e.processed.Load(), e.failed.Load()
}

// Run polls until ctx is cancelled.
func (e *Executor) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Poll(ctx)
		}
	}
}

// Poll runs one queue drain cycle.
func (e *Executor) Poll(ctx context.Context) {
	metrics.BridgePollCycle()
	cmds, err := e.store.ListPending(ctx, e.controllerID, e.maxPerPoll)
	if err != nil {
		log.Printf("executor: list pending: %v", err)
		return
	}
	for _, cmd := range cmds {
		e.execute(ctx, cmd)
	}
}

func (e *Executor) execute(ctx context.Context, cmd *model.Command) {
	log.Printf("executor: command %s (%s)", cmd.ID, cmd.Type)

	// Transient marker so a second bridge instance can see the record
	// is claimed. Failure to mark is not fatal.
	if err := e.store.UpdateStatus(ctx, cmd.ID, model.CommandExecuting, nil, ""); err != nil {
		log.Printf("executor: mark executing %s: %v", cmd.ID, err)
	}

	result, err := e.dispatch(ctx, cmd)
	if err != nil {
		e.failed.Add(1)
		metrics.BridgeCommand(metrics.ResultFailed)
		if uerr := e.store.UpdateStatus(ctx, cmd.ID, model.CommandFailed, nil, err.Error()); uerr != nil {
			log.Printf("executor: mark failed %s: %v", cmd.ID, uerr)
		}
		return
	}

	e.processed.Add(1)
	metrics.BridgeCommand(metrics.ResultCompleted)
	if result == nil {
		result = map[string]interface{}{}
	}
	if err := e.store.UpdateStatus(ctx, cmd.ID, model.CommandCompleted, result, ""); err != nil {
		log.Printf("executor: mark completed %s: %v", cmd.ID, err)
	}
}

// dispatch maps a command type onto the device's endpoints the same way
// every transport does: reads hit /json/state and /json/info, state
// mutations POST /json/state, config kinds POST /json/cfg. Unknown
// types default to a state write so older queue records stay playable.
func (e *Executor) dispatch(ctx context.Context, cmd *model.Command) (map[string]interface{}, error) {
	switch cmd.Type {
	case model.CommandGetState:
		return e.device.Get(ctx, "/json/state")
	case model.CommandGetInfo:
		return e.device.Get(ctx, "/json/info")
	case model.CommandApplyConfig, model.CommandSetConfig,
		model.CommandConfigureSyncSender, model.CommandConfigureSyncReceiver:
		return e.device.Post(ctx, "/json/cfg", cmd.Payload)
	case model.CommandSetState, model.CommandApplyJSON,
		model.CommandRenameSegment, model.CommandApplyToSegments,
		model.CommandSavePreset, model.CommandLoadPreset:
		return e.device.Post(ctx, "/json/state", payload.Normalize(cmd.Payload))
	default:
		if cmd.Payload == nil {
			return nil, fmt.Errorf("executor: command %s has no payload", cmd.Type)
		}
		return e.device.Post(ctx, "/json/state", payload.Normalize(cmd.Payload))
	}
}
