package ports

import (
	"context"

	"lumina-core/internal/domain/model"
)

// Controller is the device-control contract every JSON transport
// implements. Expected failures — device offline, malformed response,
// relay timeout — resolve to false or nil at this boundary; nothing
// here panics or surfaces an error type. Callers treat false/nil as
// routine state, not as exceptional.
//
// Optional capabilities degrade gracefully: a transport that cannot
// answer returns the zero value (false, 0, nil) instead of failing the
// whole contract.
type Controller interface {
	// GetState returns the best-available snapshot, or nil when the
	// device is unknown or unreachable. Never blocks past the
	// transport's bounded timeout.
	GetState(ctx context.Context) *model.DeviceState

	// SetState applies every provided field in one network operation.
	SetState(ctx context.Context, update model.StateUpdate) bool

	// ApplyJSON sends a caller-built state payload, normalized first.
	ApplyJSON(ctx context.Context, p map[string]interface{}) bool

	// ApplyConfig targets persistent device configuration, not
	// transient look.
	ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool

	FetchSegments(ctx context.Context) []model.Segment
	RenameSegment(ctx context.Context, id int, name string) bool
	ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool

	// SavePreset/LoadPreset reject ids outside 1..250 before any
	// network call.
	SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool
	LoadPreset(ctx context.Context, id int) bool

	// Optional capabilities.
	SupportsRGBW(ctx context.Context) bool
	LEDCount(ctx context.Context) int
	UploadLEDMap(ctx context.Context, path string, data []byte) bool
}

// CloudController is a Controller routed through an authenticated
// backend bridge; the session gate is checked before every call.
type CloudController interface {
	Controller
	IsAuthenticated() bool
}

// Reachable answers a cheap liveness probe, used by the transport
// selector to decide whether the direct path is worth trying.
type Reachable interface {
	Reachable(ctx context.Context) bool
}

// StreamSession is the UDP pixel-streaming surface. While a session is
// active it is the sole writer of the device's animated state; JSON
// color/effect writes must be suppressed until Stop.
type StreamSession interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	SendFrame(pixels []model.Color) bool
}
