package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	prod, err := NewLogger("prod", "")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))
	assert.True(t, prod.Core().Enabled(zap.InfoLevel))

	dev, err := NewLogger("dev", "")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerLevelOverride(t *testing.T) {
	l, err := NewLogger("dev", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	l, err = NewLogger("prod", "debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger("dev", "loud")
	assert.Error(t, err)
}

func TestNewSugar(t *testing.T) {
	s, err := NewSugar("dev", "")
	require.NoError(t, err)
	assert.NotNil(t, s)
}
