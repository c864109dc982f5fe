package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	dev := NewLogger(&Config{AppEnv: "development", LogFormat: "pretty"})
	require.True(t, dev.Enabled(context.Background(), slog.LevelDebug))

	prod := NewLogger(&Config{AppEnv: "production", LogFormat: "json"})
	require.False(t, prod.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, prod.Enabled(context.Background(), slog.LevelInfo))
}
