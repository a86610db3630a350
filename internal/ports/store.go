package ports

import (
	"context"

	"lumina-core/internal/domain/model"
)

// CommandStore is the shared durable queue the relay path runs over.
// The queueing side enqueues and polls; the executing side lists
// pending work and writes status back. The record is the single source
// of truth for completion.
type CommandStore interface {
	// Enqueue writes a fresh pending command and returns the id the
	// store assigned to it.
	Enqueue(ctx context.Context, cmd *model.Command) (string, error)

	Get(ctx context.Context, id string) (*model.Command, error)

	// UpdateStatus transitions a record and attaches result or error.
	// The queueing side only ever uses it to mark timeout.
	UpdateStatus(ctx context.Context, id string, status model.CommandStatus, result map[string]interface{}, errMsg string) error

	// ListPending returns up to limit pending commands for one
	// controller, oldest first.
	ListPending(ctx context.Context, controllerID string, limit int) ([]*model.Command, error)
}

// ConfigRepository loads and persists the bridge daemon configuration.
type ConfigRepository interface {
	Get(ctx context.Context) (*model.BridgeConfig, error)
	Save(ctx context.Context, cfg *model.BridgeConfig) error
}
