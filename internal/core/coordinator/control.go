package coordinator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

// Execute sends cmd to FileFlows. The result is the remote's answer alone;
// a successful command also requests an out-of-cycle refresh.
func (c *Coordinator) Execute(ctx context.Context, cmd fileflows.Command) error {
	start := time.Now()
	err := c.remote.Execute(ctx, cmd)
	c.recorder.RecordCommand(cmd.Name, err == nil)

	entry := c.logger.WithFields(logrus.Fields{
		"command":  cmd.Name,
		"duration": time.Since(start),
	})
	if cmd.ID != "" {
		entry = entry.WithField("id", cmd.ID)
	}
	if len(cmd.IDs) > 0 {
		entry = entry.WithField("ids", cmd.IDs)
	}

	if err != nil {
		entry.WithError(err).Error("FileFlows command failed")
		return err
	}
	entry.Info("FileFlows command executed")

	c.RequestRefresh()
	return nil
}

func (c *Coordinator) Pause(ctx context.Context, minutes int) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandPause, Minutes: minutes})
}

func (c *Coordinator) Resume(ctx context.Context) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandResume})
}

func (c *Coordinator) Restart(ctx context.Context) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandRestart})
}

func (c *Coordinator) SetNodeEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, fileflows.Command{Name: toggle(enabled, fileflows.CommandEnableNode, fileflows.CommandDisableNode), ID: uid})
}

func (c *Coordinator) SetLibraryEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, fileflows.Command{Name: toggle(enabled, fileflows.CommandEnableLibrary, fileflows.CommandDisableLibrary), ID: uid})
}

func (c *Coordinator) SetFlowEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, fileflows.Command{Name: toggle(enabled, fileflows.CommandEnableFlow, fileflows.CommandDisableFlow), ID: uid})
}

func (c *Coordinator) RescanLibrary(ctx context.Context, uid string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandRescanLibrary, ID: uid})
}

func (c *Coordinator) RescanAll(ctx context.Context) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandRescanAll})
}

func (c *Coordinator) Reprocess(ctx context.Context, uids ...string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandReprocess, IDs: uids})
}

func (c *Coordinator) Unhold(ctx context.Context, uids ...string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandUnhold, IDs: uids})
}

func (c *Coordinator) AbortWorker(ctx context.Context, uid string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandAbortWorker, ID: uid})
}

func (c *Coordinator) AbortWorkerByFile(ctx context.Context, fileUID string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandAbortWorkerByFile, ID: fileUID})
}

func (c *Coordinator) RunTask(ctx context.Context, uid string) error {
	return c.Execute(ctx, fileflows.Command{Name: fileflows.CommandRunTask, ID: uid})
}

func toggle(enabled bool, on, off fileflows.CommandName) fileflows.CommandName {
	if enabled {
		return on
	}
	return off
}
