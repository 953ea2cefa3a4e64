package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xChaser/EasyBooking/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = config.AppConfig{Name: "easybooking", Environment: "test", Version: "0.3.0"}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal(line, &ev), string(line))
		events = append(events, ev)
	}
	return events
}

func TestBotLoggerTagsEvents(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{}, testApp, WithWriters(&stdout, &stderr))
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	Component(logger, "session-store").Info().Str("key", "token:tg:1").Msg("Primary session store recovered")
	logger.Debug().Msg("dropped")

	assert.Empty(t, stderr.String())
	events := decodeLines(t, &stdout)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "easybooking", ev["app"])
	assert.Equal(t, "test", ev["env"])
	assert.Equal(t, "0.3.0", ev["version"])
	assert.Equal(t, "session-store", ev["component"])
	assert.Equal(t, "token:tg:1", ev["key"])
	assert.Equal(t, "info", ev["level"])
	assert.Contains(t, ev, "time")
}

func TestCLILoggerKeepsStdoutClean(t *testing.T) {
	for _, output := range []string{"", "stdout", "stderr"} {
		t.Run("output="+output, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cfg := config.LoggingConfig{Level: "debug", Output: output}
			logger, _, err := New(cfg, testApp, Interactive(false), WithWriters(&stdout, &stderr))
			require.NoError(t, err)
			assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

			logger.Info().Msg("Signed in")
			logger.Warn().Msg("Room form rejected")

			assert.Empty(t, stdout.String())
			events := decodeLines(t, &stderr)
			require.Len(t, events, 1)
			assert.Equal(t, "Room form rejected", events[0]["message"])
		})
	}
}

func TestCLIVerboseUsesConfiguredLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "debug"}, testApp, Interactive(true), WithWriters(&stdout, &stderr))
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger.Debug().Str("method", "GET").Str("path", "/api/v1/room/").Msg("request")
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), `"path":"/api/v1/room/"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "chatty"}, testApp, WithWriters(&buf, &buf))
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestConsoleFormat(t *testing.T) {
	var stdout bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Format: "console"}, testApp, WithWriters(&stdout, nil))
	require.NoError(t, err)

	logger.Info().Msg("Bot started")
	assert.Contains(t, stdout.String(), "Bot started")
	assert.Contains(t, stdout.String(), "app=")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "easybooking.log")
	cfg := config.LoggingConfig{Level: "error", Output: "file", FilePath: path}

	logger, closer, err := New(cfg, testApp)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Warn().Msg("dropped")
	logger.Error().Str("component", "bot").Msg("create BotAPI")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	events := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, events, 1)
	assert.Equal(t, "create BotAPI", events[0]["message"])

	_, _, err = New(config.LoggingConfig{Output: "file"}, testApp)
	assert.EqualError(t, err, "logging.output=file requires logging.file_path")
}

func TestUnknownOutput(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "syslog"}, testApp)
	assert.EqualError(t, err, `unknown logging.output "syslog"`)
}

func TestComponent(t *testing.T) {
	nilLogger := Component(nil, "session")
	require.NotNil(t, nilLogger)
	assert.Equal(t, zerolog.Disabled, nilLogger.GetLevel())

	var buf bytes.Buffer
	base := zerolog.New(&buf)
	Component(&base, "api-client").Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"api-client"`)
}
