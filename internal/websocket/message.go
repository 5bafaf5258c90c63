package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

// Message types for WebSocket communication
const (
	// Server to client
	MessageTypeConnection        = "connection"
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypePong              = "pong"
	MessageTypeSnapshotUpdated   = "snapshot_updated"
	MessageTypeCoordinatorStatus = "coordinator_status"
	MessageTypeSubscription      = "subscription_update"
	MessageTypeError             = "error"

	// Client to server
	MessageTypePing        = "ping"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
)

// Topics a client can subscribe to. New clients receive both.
const (
	TopicSnapshot = "snapshot"
	TopicStatus   = "status"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	data, _ := json.Marshal(m)
	return data
}

// UnmarshalJSON accepts RFC3339 timestamps as well as unix seconds or
// milliseconds, either as numbers or strings. A missing or unreadable
// timestamp becomes the current time.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string                 `json:"type"`
		Data      map[string]interface{} `json:"data"`
		Timestamp interface{}            `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Type = raw.Type
	m.Data = raw.Data
	m.Timestamp = parseTimestamp(raw.Timestamp)
	return nil
}

func parseTimestamp(v interface{}) time.Time {
	if v == nil {
		return time.Now().UTC()
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	n, err := cast.ToInt64E(v)
	if err != nil || n <= 0 {
		return time.Now().UTC()
	}
	// Anything past 1e12 is milliseconds; seconds reach that in year 33658.
	if n >= 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// SnapshotUpdatedMessage summarises a published tick.
func SnapshotUpdatedMessage(u coordinator.Update) Message {
	sources := make(map[string]string)
	for _, r := range u.Snapshot.Resources() {
		sources[string(r)] = string(u.Snapshot.State(r).Source)
	}
	return Message{
		Type: MessageTypeSnapshotUpdated,
		Data: map[string]interface{}{
			"tick":       u.Snapshot.Tick(),
			"fetched_at": u.Snapshot.FetchedAt(),
			"available":  u.Status.Available,
			"metrics":    u.Snapshot.Metrics(),
			"sources":    sources,
		},
	}
}

// CoordinatorStatusMessage reports availability and the last poll outcome.
func CoordinatorStatusMessage(status coordinator.Status) Message {
	data := map[string]interface{}{
		"available":            status.Available,
		"consecutive_failures": status.ConsecutiveFailures,
		"ticks":                status.Ticks,
		"failed_ticks":         status.FailedTicks,
	}
	if !status.LastSuccess.IsZero() {
		data["last_success"] = status.LastSuccess
	}
	if status.LastError != "" {
		data["last_error"] = status.LastError
	}
	return Message{Type: MessageTypeCoordinatorStatus, Data: data}
}

// ErrorMessage creates a message reporting a rejected client request
func ErrorMessage(message string) Message {
	return Message{
		Type: MessageTypeError,
		Data: map[string]interface{}{"message": message},
	}
}
