package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "warn", File: filepath.Join(t.TempDir(), "logs", "tt.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
			assert.NotNil(t, l.GetZerolog())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error", "fatal", "disabled"} {
		_, err := parseLogLevel(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := parseLogLevel("verbose")
	assert.Error(t, err)
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	l.WithField("handle", "MS4w").
		WithFields(map[string]interface{}{"cursor": 40, "elapsed": 2 * time.Second}).
		WithError(errors.New("boom")).
		Info("page fetched")

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "page fetched", event["message"])
	assert.Equal(t, "MS4w", event["handle"])
	assert.EqualValues(t, 40, event["cursor"])
	assert.Equal(t, "boom", event["error"])
}

func TestWriterLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestChildLoggerDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "info")
	require.NoError(t, err)

	_ = l.WithField("only_child", true)
	l.Info("parent")
	assert.NotContains(t, buf.String(), "only_child")
}

func TestTestLoggerCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("handle", "abc")

	child.Info("starting")
	child.WithError(errors.New("timeout")).WarnWithFields("retrying", map[string]interface{}{"attempt": 2})
	tl.Debug("root message")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "abc", msgs[0].Fields["handle"])
	assert.Equal(t, 2, msgs[1].Fields["attempt"])
	assert.EqualError(t, msgs[1].Error, "timeout")
	assert.Nil(t, msgs[2].Fields)

	assert.True(t, tl.HasMessage("warn", "retry"))
	assert.False(t, tl.HasMessage("error", "retry"))
	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://example.test/api", 200, 15*time.Millisecond)
	LogRequest(tl, "GET", "https://example.test/api", 429, time.Millisecond)
	LogRequest(tl, "GET", "https://example.test/api", 503, time.Millisecond)
	LogRetry(tl, "fetch page", 1, 3, time.Second, errors.New("reset"))
	LogCrawlProgress(tl, "abc", 1, 20, 20, 20)
	LogRateLimit(tl, "/api/post/item_list/", time.Second)

	assert.Len(t, tl.GetMessagesByLevel("debug"), 1)
	assert.Len(t, tl.GetMessagesByLevel("warn"), 3)
	assert.Len(t, tl.GetMessagesByLevel("error"), 1)
	assert.True(t, tl.HasMessage("info", "Page collected"))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").WithError(errors.New("x")).Error("ignored")
		l.InfoWithFields("ignored", nil)
	})
	assert.NotNil(t, l.GetZerolog())
}

func TestGetLoggerDefault(t *testing.T) {
	assert.NotNil(t, GetLogger())
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "error"}))
	assert.NotNil(t, GetLogger())
	assert.Error(t, Initialize(&config.LoggingConfig{Level: "nope"}))
}
