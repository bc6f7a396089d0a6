package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New(Options{Service: "bid-decider-worker", Env: "prod", Instance: "a", Level: "warn"})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = New(Options{Service: "x", Env: "local", Level: "loud"})
	require.Error(t, err)
}
