package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/metrics"
)

// stubCoordinator serves an empty snapshot and blocks Refresh until the
// context is done.
type stubCoordinator struct {
	snap   *coordinator.Snapshot
	status coordinator.Status
}

func newStub() *stubCoordinator {
	return &stubCoordinator{snap: coordinator.New(nil, coordinator.Options{}, nil).Snapshot()}
}

func (s *stubCoordinator) Snapshot() *coordinator.Snapshot { return s.snap }
func (s *stubCoordinator) Metrics() coordinator.Metrics    { return s.snap.Metrics() }
func (s *stubCoordinator) Status() coordinator.Status      { return s.status }

func (s *stubCoordinator) Refresh(ctx context.Context) (*coordinator.Snapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stubCoordinator) Execute(context.Context, fileflows.Command) error { return nil }

// mockCoordinator records control commands.
type mockCoordinator struct {
	*stubCoordinator
	mock.Mock
}

func (m *mockCoordinator) Execute(ctx context.Context, cmd fileflows.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func newTestHandlers(coord Coordinator) *Handlers {
	log := logrus.New()
	log.SetOutput(io.Discard)
	health := metrics.NewHealthChecker()
	health.RegisterCheck("fileflows", metrics.CoordinatorCheck(coord))
	return NewHandlers(nil, log, coord, nil, health, nil)
}

func serve(handler gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	handler(c)
	return w
}

func TestLookupCommand(t *testing.T) {
	for _, name := range fileflows.CommandNames() {
		got, ok := lookupCommand(string(name))
		assert.True(t, ok, name)
		assert.Equal(t, name, got)
	}

	_, ok := lookupCommand("PAUSE")
	assert.False(t, ok)
	_, ok = lookupCommand("")
	assert.False(t, ok)
}

func TestHealthBeforeFirstTick(t *testing.T) {
	h := newTestHandlers(newStub())

	w := serve(h.Health, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, metrics.StatusUnhealthy, body.Data["status"])
	assert.Equal(t, false, body.Data["available"])
	assert.NotContains(t, body.Data, "last_success")
}

func TestRefreshTimesOut(t *testing.T) {
	h := newTestHandlers(newStub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil).WithContext(ctx)

	w := serve(h.Refresh, req)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestWebSocketStatsWithoutHub(t *testing.T) {
	h := newTestHandlers(newStub())

	w := serve(h.GetWebSocketStats, httptest.NewRequest(http.MethodGet, "/api/v1/websocket/stats", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetResourceDefaults(t *testing.T) {
	h := newTestHandlers(newStub())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/snapshot/version", nil)
	c.Params = gin.Params{{Key: "resource", Value: "version"}}
	h.GetResource(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, fileflows.UnknownVersion, body.Data["value"])
	assert.EqualValues(t, 0, body.Meta["tick"])
	assert.NotContains(t, body.Meta, "fetched_at")
}

func TestExecuteCommand(t *testing.T) {
	coord := &mockCoordinator{stubCoordinator: newStub()}
	coord.On("Execute", mock.Anything, fileflows.Command{Name: fileflows.CommandRunTask, ID: "task-9"}).Return(nil).Once()
	coord.On("Execute", mock.Anything, fileflows.Command{Name: fileflows.CommandRescanAll}).
		Return(&fileflows.Error{Kind: fileflows.KindAuth, Op: "rescan_all", Status: http.StatusUnauthorized}).Once()
	h := newTestHandlers(coord)

	run := func(command, body string) *httptest.ResponseRecorder {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/control/"+command, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "command", Value: command}}
		h.ExecuteCommand(c)
		return w
	}

	assert.Equal(t, http.StatusAccepted, run("run_task", `{"id": "task-9"}`).Code)
	assert.Equal(t, http.StatusBadGateway, run("rescan_all", "").Code)
	assert.Equal(t, http.StatusBadRequest, run("run_task", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, run("self_destruct", "").Code)

	coord.AssertExpectations(t)
}
