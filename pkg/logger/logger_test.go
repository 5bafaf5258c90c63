package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := New("debug", "json")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = New("bogus", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewHonorsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, logrus.WarnLevel, New("debug", "json").GetLevel())
}

func TestBatchLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	bl := NewBatchLogger(base, 3)
	bl.LogRequest("GET", "/api/v1/snapshot", 200, 10*time.Millisecond, nil)
	bl.LogRequest("GET", "/api/v1/snapshot", 200, 30*time.Millisecond, nil)
	assert.Equal(t, 2, bl.Pending())
	assert.Empty(t, buf.String())

	bl.LogRequest("POST", "/api/v1/control/pause", 502, 5*time.Millisecond, logrus.Fields{"client_ip": "127.0.0.1"})
	require.Contains(t, buf.String(), "Status: 502")
	buf.Reset()

	bl.LogRequest("GET", "/health", 204, time.Millisecond, nil)
	assert.Zero(t, bl.Pending())

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &summary))
	assert.Equal(t, true, summary["batch_summary"])
	assert.Equal(t, float64(3), summary["total_requests"])

	buf.Reset()
	bl.FlushPending()
	assert.Empty(t, buf.String())
}
