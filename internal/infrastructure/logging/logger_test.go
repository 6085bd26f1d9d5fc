package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_ProductionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(&Config{FilePath: path, Level: "info", Env: "production", AppID: "elevate360"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("started", zap.String("event.action", "boot"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "started", line["message"])
	assert.Equal(t, "info", line["log.level"])
	assert.Equal(t, "elevate360", line["service.id"])
	assert.Equal(t, "boot", line["event.action"])
	assert.Contains(t, line, "@timestamp")
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestLoggerInContext(t *testing.T) {
	assert.NotNil(t, ExtractLoggerFromContext(context.Background()))

	logger := zap.NewExample()
	ctx := SetLoggerInContext(context.Background(), logger)
	assert.Same(t, logger, ExtractLoggerFromContext(ctx))
}
