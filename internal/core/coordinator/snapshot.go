package coordinator

import (
	"encoding/json"
	"time"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

// Source tells where the value of a resource in a Snapshot came from.
type Source string

const (
	SourceFresh    Source = "fresh"    // fetched in this tick
	SourceAbsent   Source = "absent"   // endpoint answered 404, default used
	SourceStale    Source = "stale"    // fetch failed, last-known-good kept
	SourceDefault  Source = "default"  // fetch failed and nothing was known
	SourceSkipped  Source = "skipped"  // not fetched in this auth mode
	SourceRestored Source = "restored" // loaded from the state file
)

// ResourceState is the per-resource provenance recorded in a Snapshot.
type ResourceState struct {
	Source    Source    `json:"source"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Snapshot is the immutable result of one completed tick. Every declared
// resource has a value; accessors hand out deep copies.
type Snapshot struct {
	tick      uint64
	fetchedAt time.Time
	values    map[fileflows.Resource]interface{}
	states    map[fileflows.Resource]ResourceState
}

// emptySnapshot holds the default of every resource.
func emptySnapshot() *Snapshot {
	s := &Snapshot{
		values: make(map[fileflows.Resource]interface{}),
		states: make(map[fileflows.Resource]ResourceState),
	}
	for _, r := range fileflows.AllResources() {
		s.values[r] = r.Default()
		s.states[r] = ResourceState{Source: SourceDefault}
	}
	return s
}

// Tick is the sequence number of the tick that produced s; 0 before the first.
func (s *Snapshot) Tick() uint64 { return s.tick }

// FetchedAt is when the producing tick completed.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Resources lists every resource in s in poll order.
func (s *Snapshot) Resources() []fileflows.Resource {
	return fileflows.AllResources()
}

// State returns the provenance of r.
func (s *Snapshot) State(r fileflows.Resource) ResourceState {
	return s.states[r]
}

// Value returns a deep copy of the decoded value of r.
func (s *Snapshot) Value(r fileflows.Resource) interface{} {
	return fileflows.CloneValue(s.value(r))
}

func (s *Snapshot) value(r fileflows.Resource) interface{} {
	if v, ok := s.values[r]; ok && v != nil {
		return v
	}
	return r.Default()
}

// Object returns an object resource, or an empty Record.
func (s *Snapshot) Object(r fileflows.Resource) fileflows.Record {
	return s.object(r).Clone()
}

func (s *Snapshot) object(r fileflows.Resource) fileflows.Record {
	if rec, ok := s.value(r).(fileflows.Record); ok {
		return rec
	}
	return fileflows.Record{}
}

// List returns a list resource, or an empty list.
func (s *Snapshot) List(r fileflows.Resource) []fileflows.Record {
	src := s.list(r)
	out := make([]fileflows.Record, len(src))
	for i, rec := range src {
		out[i] = rec.Clone()
	}
	return out
}

func (s *Snapshot) list(r fileflows.Resource) []fileflows.Record {
	if list, ok := s.value(r).([]fileflows.Record); ok {
		return list
	}
	return []fileflows.Record{}
}

// Text returns a text resource, or fileflows.UnknownVersion.
func (s *Snapshot) Text(r fileflows.Resource) string {
	if v, ok := s.value(r).(string); ok && v != "" {
		return v
	}
	return fileflows.UnknownVersion
}

// Flag returns a boolean resource, or false.
func (s *Snapshot) Flag(r fileflows.Resource) bool {
	v, _ := s.value(r).(bool)
	return v
}

// Metrics derives the read-only metrics of s.
func (s *Snapshot) Metrics() Metrics {
	return Derive(s)
}

type snapshotJSON struct {
	Tick      uint64                               `json:"tick"`
	FetchedAt time.Time                            `json:"fetched_at"`
	Resources map[fileflows.Resource]interface{}   `json:"resources"`
	Sources   map[fileflows.Resource]ResourceState `json:"sources"`
}

// MarshalJSON renders every resource with its provenance.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	doc := snapshotJSON{
		Tick:      s.tick,
		FetchedAt: s.fetchedAt,
		Resources: make(map[fileflows.Resource]interface{}, len(s.values)),
		Sources:   make(map[fileflows.Resource]ResourceState, len(s.states)),
	}
	for _, r := range fileflows.AllResources() {
		doc.Resources[r] = s.value(r)
		doc.Sources[r] = s.states[r]
	}
	return json.Marshal(doc)
}
