package fileflows

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Resource names one polled FileFlows endpoint.
type Resource string

const (
	ResourceStatus            Resource = "status"
	ResourceShrinkage         Resource = "shrinkage"
	ResourceUpdateAvailable   Resource = "update_available"
	ResourceVersion           Resource = "version"
	ResourceSystemInfo        Resource = "system_info"
	ResourceFileFlowsStatus   Resource = "fileflows_status"
	ResourceNodes             Resource = "nodes"
	ResourceLibraries         Resource = "libraries"
	ResourceFlows             Resource = "flows"
	ResourceWorkers           Resource = "workers"
	ResourceTasks             Resource = "tasks"
	ResourcePlugins           Resource = "plugins"
	ResourceLibraryFileStatus Resource = "library_file_status"
	ResourceUpcoming          Resource = "upcoming"
	ResourceRecentlyFinished  Resource = "recently_finished"
	ResourceGPU               Resource = "gpu"
)

// UnknownVersion is the version reported when the server does not expose one.
const UnknownVersion = "Unknown"

// Shape is the decoded form of a resource value.
type Shape int

const (
	ShapeObject Shape = iota // Record
	ShapeList                // []Record
	ShapeText                // string
	ShapeFlag                // bool
)

// ResourceSpec describes where and how a resource is fetched.
type ResourceSpec struct {
	Name   Resource
	Path   string
	Public bool
	Shape  Shape
	// Fallback is tried when Path is absent (404), only in authenticated modes.
	Fallback string
}

var catalogue = []ResourceSpec{
	{Name: ResourceStatus, Path: "remote/info/status", Public: true, Shape: ShapeObject},
	{Name: ResourceShrinkage, Path: "remote/info/shrinkage-groups", Public: true, Shape: ShapeList},
	{Name: ResourceUpdateAvailable, Path: "remote/info/update-available", Public: true, Shape: ShapeFlag},
	{Name: ResourceVersion, Path: "remote/info/version", Public: true, Shape: ShapeText, Fallback: "api/system/version"},
	{Name: ResourceSystemInfo, Path: "api/system/info", Shape: ShapeObject},
	{Name: ResourceFileFlowsStatus, Path: "api/settings/fileflows-status", Shape: ShapeObject},
	{Name: ResourceNodes, Path: "api/node", Shape: ShapeList},
	{Name: ResourceLibraries, Path: "api/library", Shape: ShapeList},
	{Name: ResourceFlows, Path: "api/flow", Shape: ShapeList},
	{Name: ResourceWorkers, Path: "api/worker", Shape: ShapeList},
	{Name: ResourceTasks, Path: "api/task", Shape: ShapeList},
	{Name: ResourcePlugins, Path: "api/plugin", Shape: ShapeList},
	{Name: ResourceLibraryFileStatus, Path: "api/library-file/status", Shape: ShapeObject},
	{Name: ResourceUpcoming, Path: "api/library-file/upcoming", Shape: ShapeList},
	{Name: ResourceRecentlyFinished, Path: "api/library-file/recently-finished", Shape: ShapeList},
	{Name: ResourceGPU, Path: "api/nvidia/smi", Shape: ShapeObject},
}

var catalogueIndex = func() map[Resource]ResourceSpec {
	idx := make(map[Resource]ResourceSpec, len(catalogue))
	for _, spec := range catalogue {
		idx[spec.Name] = spec
	}
	return idx
}()

// AllResources returns every declared resource in poll order.
func AllResources() []Resource {
	out := make([]Resource, len(catalogue))
	for i, spec := range catalogue {
		out[i] = spec.Name
	}
	return out
}

// PublicResources returns the subset reachable without credentials.
func PublicResources() []Resource {
	var out []Resource
	for _, spec := range catalogue {
		if spec.Public {
			out = append(out, spec.Name)
		}
	}
	return out
}

// Spec returns the catalogue entry for r.
func (r Resource) Spec() (ResourceSpec, bool) {
	spec, ok := catalogueIndex[r]
	return spec, ok
}

// Default returns the empty value for r: an empty Record, an empty list,
// UnknownVersion for the version, or false.
func (r Resource) Default() interface{} {
	spec, ok := r.Spec()
	if !ok {
		return nil
	}
	switch spec.Shape {
	case ShapeList:
		return []Record{}
	case ShapeText:
		return UnknownVersion
	case ShapeFlag:
		return false
	default:
		return Record{}
	}
}

// Decode normalizes a raw response (JSON value, raw text or nil) into the
// declared shape of r. A nil raw value decodes to the default. A value that
// cannot be coerced is a protocol failure.
func (r Resource) Decode(raw interface{}) (interface{}, error) {
	spec, ok := r.Spec()
	if !ok {
		return nil, newProtocolError(string(r), 0, "unknown resource")
	}
	if raw == nil {
		return r.Default(), nil
	}
	if r == ResourceShrinkage {
		return decodeShrinkage(raw)
	}
	raw = Normalize(raw)

	switch r {
	case ResourceGPU:
		return decodeGPU(raw)
	case ResourceLibraryFileStatus:
		return decodeFileStatus(raw)
	}

	switch spec.Shape {
	case ShapeObject:
		if rec, ok := raw.(Record); ok {
			return rec, nil
		}
	case ShapeList:
		if list, ok := raw.([]interface{}); ok {
			return asRecords(list), nil
		}
	case ShapeText:
		return decodeVersion(raw), nil
	case ShapeFlag:
		return decodeFlag(raw)
	}
	return nil, newProtocolError(string(r), 0, fmt.Sprintf("unexpected %T body", raw))
}

func decodeVersion(raw interface{}) string {
	var v string
	switch t := raw.(type) {
	case Record:
		v = t.First("Version", "Value")
	default:
		v = strings.Trim(strings.TrimSpace(cast.ToString(t)), `"`)
	}
	if v == "" {
		return UnknownVersion
	}
	return v
}

func decodeFlag(raw interface{}) (interface{}, error) {
	switch t := raw.(type) {
	case bool:
		return t, nil
	case Record:
		return t.Bool("UpdateAvailable"), nil
	case string:
		b, err := cast.ToBoolE(strings.Trim(strings.TrimSpace(t), `"`))
		if err != nil {
			return nil, newProtocolError(string(ResourceUpdateAvailable), 0, "unexpected text body")
		}
		return b, nil
	default:
		return nil, newProtocolError(string(ResourceUpdateAvailable), 0, fmt.Sprintf("unexpected %T body", raw))
	}
}

// decodeGPU accepts a single GPU object or a list of them, keeping the first.
func decodeGPU(raw interface{}) (interface{}, error) {
	switch t := raw.(type) {
	case Record:
		return t, nil
	case []interface{}:
		list := asRecords(t)
		if len(list) == 0 {
			return Record{}, nil
		}
		return list[0], nil
	default:
		return nil, newProtocolError(string(ResourceGPU), 0, fmt.Sprintf("unexpected %T body", raw))
	}
}

// decodeFileStatus accepts an object of counts or a list of {Status, Count}
// pairs and returns an object of counts.
func decodeFileStatus(raw interface{}) (interface{}, error) {
	switch t := raw.(type) {
	case Record:
		return t, nil
	case []interface{}:
		out := Record{}
		for _, entry := range asRecords(t) {
			key := entry.First("Status", "Name")
			if key == "" {
				continue
			}
			out[key] = cast.ToInt64(out[key]) + entry.Int64("Count")
		}
		return out, nil
	default:
		return nil, newProtocolError(string(ResourceLibraryFileStatus), 0, fmt.Sprintf("unexpected %T body", raw))
	}
}

// decodeShrinkage accepts a list of groups or an object keyed by library
// name. Library names are taken verbatim, so the keys are not normalized.
func decodeShrinkage(raw interface{}) (interface{}, error) {
	switch t := raw.(type) {
	case []interface{}, []Record:
		return asRecords(Normalize(t)), nil
	case Record:
		return decodeShrinkage(map[string]interface{}(t))
	case map[string]interface{}:
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]Record, 0, len(t))
		for _, name := range names {
			group, ok := Normalize(t[name]).(Record)
			if !ok {
				continue
			}
			if !group.Has("Library") {
				group["Library"] = name
			}
			out = append(out, group)
		}
		return out, nil
	default:
		return nil, newProtocolError(string(ResourceShrinkage), 0, fmt.Sprintf("unexpected %T body", raw))
	}
}
