package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, LogLevelDebug, NewLogger("Test").Level())

	t.Setenv("LOG_LEVEL", "ERROR")
	assert.Equal(t, LogLevelError, NewLogger("Test").Level())

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, LogLevelInfo, NewLogger("Test").Level())
}
