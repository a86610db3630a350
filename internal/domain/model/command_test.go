package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandStatusTerminal(t *testing.T) {
	assert.False(t, CommandPending.Terminal())
	assert.False(t, CommandExecuting.Terminal())
	assert.True(t, CommandCompleted.Terminal())
	assert.True(t, CommandFailed.Terminal())
	assert.True(t, CommandTimeout.Terminal())
}
