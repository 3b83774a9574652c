package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithConsole(Config{}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Named("whale").Info("whale event", zap.String("wallet", "abc"))
	require.NoError(t, Sync(log))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "whale event")
	assert.Contains(t, out, "(whale)")
	assert.Contains(t, out, `"wallet": "abc"`)
}

func TestNew_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithConsole(Config{Debug: true}, &buf)
	require.NoError(t, err)

	log.Debug("visible")
	assert.Contains(t, buf.String(), "[DEBUG]")
}

func TestNew_FileCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var buf bytes.Buffer
	log, err := newWithConsole(Config{File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	log.Info("trade executed", zap.Float64("tokens", 1.5))
	require.NoError(t, Sync(log))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"trade executed"`)
	assert.Contains(t, string(data), `"tokens":1.5`)
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "7xKX...AsU1", ShortenAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU1"))
	assert.Equal(t, "short", ShortenAddress("short"))
}
