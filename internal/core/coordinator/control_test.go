package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

func TestControlSuccessRequestsRefresh(t *testing.T) {
	remote := newFakeRemote()
	remote.populate(t)
	rec := newCountingRecorder()
	c := newTestCoordinator(remote)
	c.SetRecorder(rec)

	require.NoError(t, c.Pause(context.Background(), 15))

	assert.Eventually(t, func() bool {
		return c.Status().Ticks == 1
	}, time.Second, 5*time.Millisecond)

	remote.mu.Lock()
	require.Len(t, remote.executed, 1)
	assert.Equal(t, fileflows.Command{Name: fileflows.CommandPause, Minutes: 15}, remote.executed[0])
	remote.mu.Unlock()

	rec.mu.Lock()
	assert.Equal(t, 1, rec.commands[fileflows.CommandPause][true])
	rec.mu.Unlock()
}

func TestControlFailureSurfacesWithoutRefresh(t *testing.T) {
	remote := newFakeRemote()
	remote.execErr = &fileflows.Error{Kind: fileflows.KindProtocol, Op: "POST api/system/restart", Status: 500}
	rec := newCountingRecorder()
	c := newTestCoordinator(remote)
	c.SetRecorder(rec)

	err := c.Restart(context.Background())
	require.Error(t, err)
	assert.True(t, fileflows.IsProtocolError(err))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, c.Status().Ticks)
	assert.Zero(t, remote.callCount(fileflows.ResourceStatus))

	rec.mu.Lock()
	assert.Equal(t, 1, rec.commands[fileflows.CommandRestart][false])
	rec.mu.Unlock()
}

func TestControlIgnoresRefreshFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failAll(errRefused)
	c := newTestCoordinator(remote)

	require.NoError(t, c.RescanAll(context.Background()))
	assert.Eventually(t, func() bool {
		return c.Status().FailedTicks == 1
	}, time.Second, 5*time.Millisecond)
}

func TestControlWrappersBuildCommands(t *testing.T) {
	remote := newFakeRemote()
	c := newTestCoordinator(remote)
	ctx := context.Background()

	require.NoError(t, c.Resume(ctx))
	require.NoError(t, c.SetNodeEnabled(ctx, "n1", false))
	require.NoError(t, c.SetLibraryEnabled(ctx, "l1", true))
	require.NoError(t, c.SetFlowEnabled(ctx, "f1", false))
	require.NoError(t, c.RescanLibrary(ctx, "l1"))
	require.NoError(t, c.Reprocess(ctx, "a", "b"))
	require.NoError(t, c.Unhold(ctx, "c"))
	require.NoError(t, c.AbortWorker(ctx, "w1"))
	require.NoError(t, c.AbortWorkerByFile(ctx, "file1"))
	require.NoError(t, c.RunTask(ctx, "t1"))

	want := []fileflows.Command{
		{Name: fileflows.CommandResume},
		{Name: fileflows.CommandDisableNode, ID: "n1"},
		{Name: fileflows.CommandEnableLibrary, ID: "l1"},
		{Name: fileflows.CommandDisableFlow, ID: "f1"},
		{Name: fileflows.CommandRescanLibrary, ID: "l1"},
		{Name: fileflows.CommandReprocess, IDs: []string{"a", "b"}},
		{Name: fileflows.CommandUnhold, IDs: []string{"c"}},
		{Name: fileflows.CommandAbortWorker, ID: "w1"},
		{Name: fileflows.CommandAbortWorkerByFile, ID: "file1"},
		{Name: fileflows.CommandRunTask, ID: "t1"},
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, want, remote.executed)
}
