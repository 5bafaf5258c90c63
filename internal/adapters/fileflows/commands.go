package fileflows

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// CommandName identifies a control command.
type CommandName string

const (
	CommandPause             CommandName = "pause"
	CommandResume            CommandName = "resume"
	CommandRestart           CommandName = "restart"
	CommandEnableNode        CommandName = "enable_node"
	CommandDisableNode       CommandName = "disable_node"
	CommandEnableLibrary     CommandName = "enable_library"
	CommandDisableLibrary    CommandName = "disable_library"
	CommandEnableFlow        CommandName = "enable_flow"
	CommandDisableFlow       CommandName = "disable_flow"
	CommandRescanLibrary     CommandName = "rescan_library"
	CommandRescanAll         CommandName = "rescan_all"
	CommandReprocess         CommandName = "reprocess"
	CommandUnhold            CommandName = "unhold"
	CommandAbortWorker       CommandName = "abort_worker"
	CommandAbortWorkerByFile CommandName = "abort_worker_by_file"
	CommandRunTask           CommandName = "run_task"
)

// CommandNames lists every supported command.
func CommandNames() []CommandName {
	return []CommandName{
		CommandPause, CommandResume, CommandRestart,
		CommandEnableNode, CommandDisableNode,
		CommandEnableLibrary, CommandDisableLibrary,
		CommandEnableFlow, CommandDisableFlow,
		CommandRescanLibrary, CommandRescanAll,
		CommandReprocess, CommandUnhold,
		CommandAbortWorker, CommandAbortWorkerByFile,
		CommandRunTask,
	}
}

// Command is one remote mutation. ID targets a single node, library, flow,
// worker, file or task; IDs carries file lists for reprocess and unhold.
type Command struct {
	Name    CommandName `json:"command"`
	ID      string      `json:"id,omitempty"`
	IDs     []string    `json:"ids,omitempty"`
	Minutes int         `json:"minutes,omitempty"`
}

// Validate checks the arguments required by the command.
func (cmd Command) Validate() error {
	_, _, _, err := cmd.request()
	return err
}

// ids merges ID and IDs, dropping blanks and duplicates.
func (cmd Command) ids() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range append([]string{cmd.ID}, cmd.IDs...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (cmd Command) target() (string, error) {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		return "", fmt.Errorf("%w: %s requires an id", ErrInvalidCommand, cmd.Name)
	}
	return url.PathEscape(id), nil
}

func (cmd Command) request() (method, path string, body interface{}, err error) {
	switch cmd.Name {
	case CommandPause:
		if cmd.Minutes < 0 {
			return "", "", nil, fmt.Errorf("%w: pause minutes must not be negative", ErrInvalidCommand)
		}
		if cmd.Minutes > 0 {
			body = map[string]int{"Minutes": cmd.Minutes}
		}
		return http.MethodPost, "api/system/pause", body, nil
	case CommandResume:
		return http.MethodPost, "api/system/pause", map[string]int{"Minutes": -1}, nil
	case CommandRestart:
		return http.MethodPost, "api/system/restart", nil, nil
	case CommandEnableNode, CommandDisableNode:
		return cmd.stateRequest("node", cmd.Name == CommandEnableNode)
	case CommandEnableLibrary, CommandDisableLibrary:
		return cmd.stateRequest("library", cmd.Name == CommandEnableLibrary)
	case CommandEnableFlow, CommandDisableFlow:
		return cmd.stateRequest("flow", cmd.Name == CommandEnableFlow)
	case CommandRescanLibrary:
		ids := cmd.ids()
		if len(ids) == 0 {
			return "", "", nil, fmt.Errorf("%w: %s requires an id", ErrInvalidCommand, cmd.Name)
		}
		return http.MethodPut, "api/library/rescan", ids, nil
	case CommandRescanAll:
		return http.MethodPost, "api/library/rescan-enabled", nil, nil
	case CommandReprocess, CommandUnhold:
		ids := cmd.ids()
		if len(ids) == 0 {
			return "", "", nil, fmt.Errorf("%w: %s requires at least one file id", ErrInvalidCommand, cmd.Name)
		}
		if cmd.Name == CommandReprocess {
			return http.MethodPost, "api/library-file/reprocess", ids, nil
		}
		return http.MethodPost, "api/library-file/unhold", ids, nil
	case CommandAbortWorker:
		id, err := cmd.target()
		if err != nil {
			return "", "", nil, err
		}
		return http.MethodDelete, "api/worker/" + id, nil, nil
	case CommandAbortWorkerByFile:
		id, err := cmd.target()
		if err != nil {
			return "", "", nil, err
		}
		return http.MethodDelete, "api/worker/by-file/" + id, nil, nil
	case CommandRunTask:
		id, err := cmd.target()
		if err != nil {
			return "", "", nil, err
		}
		return http.MethodPost, "api/task/run/" + id, nil, nil
	default:
		return "", "", nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, cmd.Name)
	}
}

func (cmd Command) stateRequest(kind string, enable bool) (string, string, interface{}, error) {
	id, err := cmd.target()
	if err != nil {
		return "", "", nil, err
	}
	return http.MethodPut, fmt.Sprintf("api/%s/state/%s?enable=%t", kind, id, enable), nil, nil
}

// Execute sends cmd to the server. Its success is decided by the server's
// response alone.
func (c *Client) Execute(ctx context.Context, cmd Command) error {
	method, path, body, err := cmd.request()
	if err != nil {
		return err
	}
	if _, err := c.Do(ctx, string(cmd.Name), method, path, body); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"command": cmd.Name,
		"id":      cmd.ID,
	}).Debug("FileFlows command accepted")
	return nil
}

// Pause pauses processing, for minutes when minutes > 0, indefinitely otherwise.
func (c *Client) Pause(ctx context.Context, minutes int) error {
	return c.Execute(ctx, Command{Name: CommandPause, Minutes: minutes})
}

// Resume resumes processing.
func (c *Client) Resume(ctx context.Context) error {
	return c.Execute(ctx, Command{Name: CommandResume})
}

// Restart restarts the server.
func (c *Client) Restart(ctx context.Context) error {
	return c.Execute(ctx, Command{Name: CommandRestart})
}

// SetNodeEnabled enables or disables a processing node.
func (c *Client) SetNodeEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, Command{Name: pick(enabled, CommandEnableNode, CommandDisableNode), ID: uid})
}

// SetLibraryEnabled enables or disables a library.
func (c *Client) SetLibraryEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, Command{Name: pick(enabled, CommandEnableLibrary, CommandDisableLibrary), ID: uid})
}

// SetFlowEnabled enables or disables a flow.
func (c *Client) SetFlowEnabled(ctx context.Context, uid string, enabled bool) error {
	return c.Execute(ctx, Command{Name: pick(enabled, CommandEnableFlow, CommandDisableFlow), ID: uid})
}

// RescanLibrary rescans one library.
func (c *Client) RescanLibrary(ctx context.Context, uid string) error {
	return c.Execute(ctx, Command{Name: CommandRescanLibrary, ID: uid})
}

// RescanAll rescans every enabled library.
func (c *Client) RescanAll(ctx context.Context) error {
	return c.Execute(ctx, Command{Name: CommandRescanAll})
}

// Reprocess queues files for processing again.
func (c *Client) Reprocess(ctx context.Context, uids ...string) error {
	return c.Execute(ctx, Command{Name: CommandReprocess, IDs: uids})
}

// Unhold releases files that are on hold.
func (c *Client) Unhold(ctx context.Context, uids ...string) error {
	return c.Execute(ctx, Command{Name: CommandUnhold, IDs: uids})
}

// AbortWorker aborts a running worker.
func (c *Client) AbortWorker(ctx context.Context, uid string) error {
	return c.Execute(ctx, Command{Name: CommandAbortWorker, ID: uid})
}

// AbortWorkerByFile aborts the worker processing the given library file.
func (c *Client) AbortWorkerByFile(ctx context.Context, fileUID string) error {
	return c.Execute(ctx, Command{Name: CommandAbortWorkerByFile, ID: fileUID})
}

// RunTask runs a scheduled task now.
func (c *Client) RunTask(ctx context.Context, uid string) error {
	return c.Execute(ctx, Command{Name: CommandRunTask, ID: uid})
}

func pick(cond bool, a, b CommandName) CommandName {
	if cond {
		return a
	}
	return b
}
