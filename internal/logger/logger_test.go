package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Compress = false

	log, err := New(cfg)
	require.NoError(t, err)
	log.Named("engine").Info("pool created", zap.String("token", "abc"))
	log.Debug("hidden")
	_ = Sync(log)

	data, err := os.ReadFile(cfg.path())
	require.NoError(t, err)
	line := string(data)
	assert.Equal(t, "pool created", gjson.Get(line, "msg").String())
	assert.Equal(t, "abc", gjson.Get(line, "token").String())
	assert.Equal(t, "INFO", gjson.Get(line, "level").String())
	assert.NotContains(t, line, "hidden")
}

func TestNewTUIWritesToBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Debug = true
	buffer := NewLogBuffer(8)

	log, err := NewTUI(cfg, buffer)
	require.NoError(t, err)
	log.Debug("debug visible")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "DEBUG", logs[0].Level)
}
