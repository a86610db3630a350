package model

import "time"

type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandExecuting CommandStatus = "executing"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
	CommandTimeout   CommandStatus = "timeout"
)

// Terminal reports whether the status ends the command lifecycle. The
// transient "executing" marker the bridge writes is not terminal.
func (s CommandStatus) Terminal() bool {
	return s == CommandCompleted || s == CommandFailed || s == CommandTimeout
}

type CommandType string

const (
	CommandGetState              CommandType = "getState"
	CommandGetInfo               CommandType = "getInfo"
	CommandSetState              CommandType = "setState"
	CommandApplyJSON             CommandType = "applyJson"
	CommandApplyConfig           CommandType = "applyConfig"
	CommandSetConfig             CommandType = "setConfig"
	CommandSavePreset            CommandType = "savePreset"
	CommandLoadPreset            CommandType = "loadPreset"
	CommandRenameSegment         CommandType = "renameSegment"
	CommandApplyToSegments       CommandType = "applyToSegments"
	CommandConfigureSyncSender   CommandType = "configureSyncSender"
	CommandConfigureSyncReceiver CommandType = "configureSyncReceiver"
)

// CommandRetention is how long a queued command record is kept before
// the store's TTL sweeper may delete it. Retention is independent of the
// command lifecycle; the queueing side stops caring once it observes a
// terminal status or gives up.
const CommandRetention = 24 * time.Hour

// Command is one unit of work for a controller, serialized directly into
// the relay document store. The queueing side creates it with status
// pending; only the executing side writes status/result/error back.
type Command struct {
	ID           string                 `json:"id" dynamodbav:"id"`
	ControllerID string                 `json:"controllerId" dynamodbav:"controller_id"`
	Type         CommandType            `json:"type" dynamodbav:"type"`
	Payload      map[string]interface{} `json:"payload,omitempty" dynamodbav:"payload,omitempty"`
	Status       CommandStatus          `json:"status" dynamodbav:"status"`
	Result       map[string]interface{} `json:"result,omitempty" dynamodbav:"result,omitempty"`
	Error        string                 `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt    int64                  `json:"createdAt" dynamodbav:"created_at"`
	CompletedAt  int64                  `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
	ExpiresAt    int64                  `json:"expiresAt" dynamodbav:"expires_at"`
}
