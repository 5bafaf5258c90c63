package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func raw(t *testing.T, body string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

var errRefused = &fileflows.Error{Kind: fileflows.KindConnection, Op: "GET", Err: errors.New("connection refused")}

type fakeRemote struct {
	mu        sync.Mutex
	resources []fileflows.Resource
	values    map[fileflows.Resource]interface{}
	errs      map[fileflows.Resource]error
	panics    map[fileflows.Resource]bool
	calls     map[fileflows.Resource]int
	executed  []fileflows.Command
	execErr   error

	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeRemote(resources ...fileflows.Resource) *fakeRemote {
	if len(resources) == 0 {
		resources = fileflows.AllResources()
	}
	return &fakeRemote{
		resources: resources,
		values:    make(map[fileflows.Resource]interface{}),
		errs:      make(map[fileflows.Resource]error),
		panics:    make(map[fileflows.Resource]bool),
		calls:     make(map[fileflows.Resource]int),
	}
}

func (f *fakeRemote) Resources() []fileflows.Resource {
	return f.resources
}

func (f *fakeRemote) Fetch(ctx context.Context, r fileflows.Resource) (interface{}, error) {
	f.mu.Lock()
	f.calls[r]++
	gate, started := f.gate, f.started
	value, err, panics := f.values[r], f.errs[r], f.panics[r]
	f.mu.Unlock()

	if started != nil {
		f.once.Do(func() { close(started) })
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if panics {
		panic("boom")
	}
	if err != nil {
		return nil, err
	}
	return fileflows.CloneValue(value), nil
}

func (f *fakeRemote) Execute(ctx context.Context, cmd fileflows.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, cmd)
	return f.execErr
}

func (f *fakeRemote) set(r fileflows.Resource, value interface{}, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[r] = value
	if err != nil {
		f.errs[r] = err
	} else {
		delete(f.errs, r)
	}
}

func (f *fakeRemote) failAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resources {
		f.errs[r] = err
	}
}

func (f *fakeRemote) clearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = make(map[fileflows.Resource]error)
}

func (f *fakeRemote) callCount(r fileflows.Resource) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[r]
}

func (f *fakeRemote) populate(t *testing.T) {
	t.Helper()
	f.set(fileflows.ResourceStatus, raw(t, `{"queue":5,"processing":1,"processed":20,"time":"00:05:00"}`), nil)
	f.set(fileflows.ResourceNodes, raw(t, `[{"uid":"n1","name":"Main","enabled":true,"flowRunners":2},{"uid":"n2","name":"Aux","enabled":false,"flowRunners":1}]`), nil)
	f.set(fileflows.ResourceLibraries, raw(t, `[{"uid":"l1","name":"Movies","enabled":true}]`), nil)
	f.set(fileflows.ResourceVersion, "24.08.1", nil)
	f.set(fileflows.ResourceShrinkage, raw(t, `[{"library":"Movies","originalSize":100,"finalSize":60},{"library":"TV","originalSize":200,"finalSize":150}]`), nil)
}

func newTestCoordinator(remote Remote) *Coordinator {
	return New(remote, Options{FetchTimeout: time.Second, TickTimeout: 5 * time.Second}, testLogger())
}

func TestInitialSnapshotHoldsDefaults(t *testing.T) {
	c := newTestCoordinator(newFakeRemote())

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Zero(t, snap.Tick())
	for _, r := range fileflows.AllResources() {
		assert.Equal(t, r.Default(), snap.Value(r), r)
	}
	assert.False(t, c.Available())
	assert.Equal(t, fileflows.UnknownVersion, c.Metrics().Version)
}

func TestRefreshPublishesEveryResource(t *testing.T) {
	remote := newFakeRemote(fileflows.PublicResources()...)
	remote.populate(t)
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Tick())
	assert.Same(t, snap, c.Snapshot())
	assert.True(t, c.Available())

	for _, r := range fileflows.AllResources() {
		assert.NotNil(t, snap.Value(r), r)
	}
	assert.Equal(t, SourceFresh, snap.State(fileflows.ResourceStatus).Source)
	assert.Equal(t, SourceAbsent, snap.State(fileflows.ResourceUpdateAvailable).Source)
	assert.Equal(t, SourceSkipped, snap.State(fileflows.ResourceNodes).Source)
	assert.Empty(t, snap.List(fileflows.ResourceNodes))
	assert.Equal(t, "24.08.1", snap.Text(fileflows.ResourceVersion))
	assert.Equal(t, int64(5), snap.Metrics().Unprocessed)
}

func TestFailedResourceKeepsLastKnownGood(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	remote.set(fileflows.ResourceTasks, nil, errRefused)
	c := newTestCoordinator(remote)

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)
	nodes := first.List(fileflows.ResourceNodes)
	require.Len(t, nodes, 2)

	// Nothing known yet, so the default is used.
	assert.Equal(t, SourceDefault, first.State(fileflows.ResourceTasks).Source)
	assert.Empty(t, first.List(fileflows.ResourceTasks))

	remote.set(fileflows.ResourceNodes, nil, errRefused)
	remote.set(fileflows.ResourceStatus, raw(t, `{"queue":7}`), nil)

	second, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Tick())
	assert.Equal(t, nodes, second.List(fileflows.ResourceNodes))
	state := second.State(fileflows.ResourceNodes)
	assert.Equal(t, SourceStale, state.Source)
	assert.Contains(t, state.Error, "connection refused")
	assert.Equal(t, int64(7), second.Object(fileflows.ResourceStatus).Int64("Queue"))
	assert.Equal(t, SourceDefault, second.State(fileflows.ResourceTasks).Source)
}

func TestAllFailuresKeepPreviousSnapshot(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	c := newTestCoordinator(remote)

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)

	var updates []Update
	c.Subscribe(func(u Update) { updates = append(updates, u) })

	remote.failAll(errRefused)

	got, err := c.Refresh(context.Background())
	require.Error(t, err)
	var tickErr *TickError
	require.True(t, errors.As(err, &tickErr))
	assert.Len(t, tickErr.Errors, len(fileflows.AllResources()))
	assert.True(t, fileflows.IsConnectionError(err))

	assert.Same(t, first, got)
	assert.Same(t, first, c.Snapshot())

	status := c.Status()
	assert.False(t, status.Available)
	assert.Equal(t, 1, status.ConsecutiveFailures)
	assert.Equal(t, uint64(2), status.Ticks)
	assert.Equal(t, uint64(1), status.FailedTicks)
	assert.NotEmpty(t, status.LastError)

	require.Len(t, updates, 1)
	assert.False(t, updates[0].Published)
	assert.Same(t, first, updates[0].Snapshot)

	// Recovery publishes again and resets the failure streak.
	remote.clearErrors()

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Available())
	assert.Zero(t, c.Status().ConsecutiveFailures)
}

func TestProtocolFailuresStillPublish(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	c := newTestCoordinator(remote)

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)
	nodes := first.List(fileflows.ResourceNodes)

	remote.failAll(&fileflows.Error{Kind: fileflows.KindProtocol, Op: "GET", Status: http.StatusBadGateway, Message: "bad gateway"})

	got, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Tick())
	assert.Equal(t, nodes, got.List(fileflows.ResourceNodes))
	assert.Equal(t, SourceStale, got.State(fileflows.ResourceNodes).Source)
	assert.True(t, c.Available())
	assert.Zero(t, c.Status().FailedTicks)

	// A single connection failure among them is not enough either.
	remote.set(fileflows.ResourceStatus, nil, errRefused)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Available())
}

func TestFirstTickFailureLeavesDefaults(t *testing.T) {
	remote := newFakeRemote()
	remote.failAll(errRefused)
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Zero(t, snap.Tick())
	assert.Empty(t, snap.List(fileflows.ResourceNodes))
	assert.False(t, c.Available())
}

func TestConcurrentRefreshCoalesces(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	remote.gate = make(chan struct{})
	remote.started = make(chan struct{})
	c := newTestCoordinator(remote)

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()

	<-remote.started
	for i := 0; i < 3; i++ {
		c.RequestRefresh()
	}
	close(remote.gate)
	require.NoError(t, <-done)

	for _, r := range fileflows.AllResources() {
		assert.Equal(t, 1, remote.callCount(r), r)
	}
	assert.Equal(t, uint64(1), c.Status().Ticks)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, remote.callCount(fileflows.ResourceNodes))
}

func TestRefreshHonorsCallerContext(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	defer close(remote.gate)
	c := newTestCoordinator(remote)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := c.Refresh(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Same(t, c.Snapshot(), snap)
}

func TestFetchPanicIsContained(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	remote.panics[fileflows.ResourceLibraries] = true
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, snap.State(fileflows.ResourceLibraries).Source)
	assert.Contains(t, snap.State(fileflows.ResourceLibraries).Error, "panic")
	assert.Len(t, snap.List(fileflows.ResourceNodes), 2)
}

func TestMalformedResourceIsIsolated(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	remote.set(fileflows.ResourceNodes, "<html>oops</html>", nil)
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, snap.State(fileflows.ResourceNodes).Source)
	assert.Equal(t, "24.08.1", snap.Text(fileflows.ResourceVersion))
}

func TestSnapshotAccessorsReturnCopies(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)

	nodes := snap.List(fileflows.ResourceNodes)
	nodes[0]["Name"] = "changed"
	status := snap.Object(fileflows.ResourceStatus)
	status["Queue"] = 99

	assert.Equal(t, "Main", snap.List(fileflows.ResourceNodes)[0].String("Name"))
	assert.Equal(t, int64(5), snap.Object(fileflows.ResourceStatus).Int64("Queue"))
}

func TestSnapshotJSON(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	c := newTestCoordinator(remote)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var doc struct {
		Tick      uint64                   `json:"tick"`
		Resources map[string]interface{}   `json:"resources"`
		Sources   map[string]ResourceState `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, uint64(1), doc.Tick)
	assert.Len(t, doc.Resources, len(fileflows.AllResources()))
	assert.Equal(t, "24.08.1", doc.Resources["version"])
	assert.Equal(t, SourceFresh, doc.Sources["nodes"].Source)
}

type countingRecorder struct {
	mu       sync.Mutex
	ticks    map[bool]int
	fetches  map[string]int
	commands map[fileflows.CommandName]map[bool]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		ticks:    make(map[bool]int),
		fetches:  make(map[string]int),
		commands: make(map[fileflows.CommandName]map[bool]int),
	}
}

func (r *countingRecorder) RecordTick(success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[success]++
}

func (r *countingRecorder) RecordFetch(_ fileflows.Resource, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[result]++
}

func (r *countingRecorder) RecordCommand(cmd fileflows.CommandName, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands[cmd] == nil {
		r.commands[cmd] = make(map[bool]int)
	}
	r.commands[cmd][success]++
}

func TestRecorderSeesOutcomes(t *testing.T) {
	remote := newFakeRemote(fileflows.ResourceStatus, fileflows.ResourceNodes, fileflows.ResourceTasks)
	remote.populate(t)
	remote.set(fileflows.ResourceTasks, nil, errRefused)
	rec := newCountingRecorder()
	c := newTestCoordinator(remote)
	c.SetRecorder(rec)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.ticks[true])
	assert.Equal(t, 2, rec.fetches["fresh"])
	assert.Equal(t, 1, rec.fetches["error"])
}

func TestEnableNodeTwiceLeavesMetricsUnchanged(t *testing.T) {
	var puts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/node/state/"):
			atomic.AddInt32(&puts, 1)
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/node":
			w.Write([]byte(`[{"Uid":"n1","Name":"Main","Enabled":true,"FlowRunners":2}]`))
		case r.URL.Path == "/remote/info/status":
			w.Write([]byte(`{"queue":4,"processing":1,"processed":9}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := fileflows.NewClient(fileflows.Config{
		BaseURL: srv.URL,
		Auth:    fileflows.HeaderToken{Token: "secret"},
		Timeout: time.Second,
	}, testLogger())
	require.NoError(t, err)
	c := newTestCoordinator(client)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	before := c.Metrics()

	require.NoError(t, c.SetNodeEnabled(context.Background(), "n1", true))
	require.NoError(t, c.SetNodeEnabled(context.Background(), "n1", true))

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	after := c.Metrics()

	assert.Equal(t, int32(2), atomic.LoadInt32(&puts))
	assert.Equal(t, before.QueueSize, after.QueueSize)
	assert.Equal(t, before.EnabledNodes, after.EnabledNodes)
	assert.Equal(t, 1, after.EnabledNodes)
	assert.Equal(t, int64(5), after.QueueSize)
}

func TestNotFoundYieldsTypedDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/remote/info/status" {
			w.Write([]byte(`{"queue":1}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := fileflows.NewClient(fileflows.Config{BaseURL: srv.URL, Auth: fileflows.HeaderToken{Token: "t"}}, testLogger())
	require.NoError(t, err)
	c := newTestCoordinator(client)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	for _, r := range fileflows.AllResources() {
		if r == fileflows.ResourceStatus {
			continue
		}
		assert.Equal(t, SourceAbsent, snap.State(r).Source, r)
		assert.Equal(t, r.Default(), snap.Value(r), r)
	}
	assert.Equal(t, fileflows.UnknownVersion, c.Metrics().Version)
}
