package entities

import (
	"context"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/types"
)

type sensorSpec struct {
	key         string
	name        string
	icon        string
	unit        string
	deviceClass string
	number      *float64
	text        string
}

func num(v float64) *float64 { return &v }

// mapper converts one Snapshot into entities. Every entity shares the
// snapshot time and the coordinator availability.
type mapper struct {
	coord     Controller
	snap      *coordinator.Snapshot
	metrics   coordinator.Metrics
	available bool
	entries   []entry
}

func (s *Service) build() []entry {
	snap := s.coord.Snapshot()
	m := &mapper{
		coord:     s.coord,
		snap:      snap,
		metrics:   snap.Metrics(),
		available: s.coord.Status().Available,
	}
	m.sensors()
	m.binarySensors()
	m.switches()
	m.buttons()
	return m.entries
}

func (m *mapper) base(entityType types.PMAEntityType, key, name, icon string, state types.PMAEntityState, attributes map[string]interface{}) *types.PMABaseEntity {
	if !m.available {
		state = types.StateUnavailable
	}
	if attributes == nil {
		attributes = make(map[string]interface{})
	}
	return &types.PMABaseEntity{
		ID:           EntityID(entityType, key),
		Type:         entityType,
		FriendlyName: "FileFlows " + name,
		Icon:         icon,
		State:        state,
		Attributes:   attributes,
		LastUpdated:  m.snap.FetchedAt(),
		Available:    m.available,
		Metadata: &types.PMAMetadata{
			Source:         types.SourceFileFlows,
			SourceEntityID: key,
			LastSynced:     m.snap.FetchedAt(),
			QualityScore:   quality(m.available),
		},
	}
}

func quality(available bool) float64 {
	if available {
		return 1.0
	}
	return 0.5
}

func (m *mapper) add(entity types.PMAEntity, c control) {
	m.entries = append(m.entries, entry{entity: entity, control: c})
}

func (m *mapper) sensor(spec sensorSpec) {
	attributes := map[string]interface{}{}
	if spec.unit != "" {
		attributes["unit_of_measurement"] = spec.unit
	}
	entity := &types.PMASensorEntity{
		PMABaseEntity:   m.base(types.EntityTypeSensor, spec.key, spec.name, spec.icon, types.StateActive, attributes),
		Unit:            spec.unit,
		DeviceClass:     spec.deviceClass,
		NumericValue:    spec.number,
		StringValue:     spec.text,
		LastMeasurement: m.snap.FetchedAt(),
	}
	m.add(entity, nil)
}

func (m *mapper) sensors() {
	mt := m.metrics
	files := func(key, name, icon string, v int64) sensorSpec {
		return sensorSpec{key: key, name: name, icon: icon, unit: "files", number: num(float64(v))}
	}

	for _, spec := range []sensorSpec{
		files("queue_size", "Queue Size", "mdi:tray-full", mt.QueueSize),
		files("unprocessed", "Unprocessed Files", "mdi:file-clock", mt.Unprocessed),
		files("processing", "Processing Files", "mdi:file-sync", mt.Processing),
		files("processed", "Processed Files", "mdi:file-check", mt.Processed),
		files("failed", "Failed Files", "mdi:file-alert", mt.Failed),
		files("on_hold", "On Hold Files", "mdi:file-lock", mt.OnHold),
		files("out_of_schedule", "Out Of Schedule Files", "mdi:file-clock-outline", mt.OutOfSchedule),
		files("disabled", "Disabled Files", "mdi:file-cancel", mt.Disabled),
		{key: "active_workers", name: "Active Workers", icon: "mdi:account-hard-hat", unit: "workers", number: num(float64(mt.ActiveWorkers))},
		{key: "current_file", name: "Current File", icon: "mdi:file-video", text: mt.CurrentFile},
		{key: "current_progress", name: "Current Progress", icon: "mdi:progress-clock", unit: "%", number: num(mt.CurrentProgress)},
		{key: "processing_time", name: "Processing Time", icon: "mdi:timer-outline", text: mt.ProcessingTime},
		{key: "storage_saved", name: "Storage Saved", icon: "mdi:harddisk-remove", unit: "GB", deviceClass: "data_size", number: num(mt.StorageSavedGB)},
		{key: "storage_saved_percent", name: "Storage Saved Percent", icon: "mdi:percent", unit: "%", number: num(mt.StorageSavedPercent)},
		{key: "cpu_usage", name: "CPU Usage", icon: "mdi:cpu-64-bit", unit: "%", number: num(mt.CPUUsage)},
		{key: "memory_usage", name: "Memory Usage", icon: "mdi:memory", unit: "%", number: num(mt.MemoryUsage)},
		{key: "temp_directory", name: "Temp Directory Size", icon: "mdi:folder-clock", unit: "GB", deviceClass: "data_size", number: num(mt.TempDirectoryGB)},
		{key: "log_directory", name: "Log Directory Size", icon: "mdi:folder-text", unit: "GB", deviceClass: "data_size", number: num(mt.LogDirectoryGB)},
		{key: "version", name: "Version", icon: "mdi:information-outline", text: mt.Version},
		{key: "nodes", name: "Nodes", icon: "mdi:server-network", number: num(float64(mt.Nodes))},
		{key: "total_runners", name: "Total Runners", icon: "mdi:run-fast", number: num(float64(mt.TotalRunners))},
		{key: "libraries", name: "Libraries", icon: "mdi:folder-multiple", number: num(float64(mt.Libraries))},
		{key: "flows", name: "Flows", icon: "mdi:sitemap", number: num(float64(mt.Flows))},
		{key: "plugins", name: "Plugins", icon: "mdi:puzzle", number: num(float64(mt.Plugins))},
		{key: "tasks", name: "Tasks", icon: "mdi:calendar-check", number: num(float64(mt.Tasks))},
		{key: "upcoming", name: "Upcoming Files", icon: "mdi:file-arrow-up-down", number: num(float64(mt.Upcoming))},
		{key: "recently_finished", name: "Recently Finished Files", icon: "mdi:file-check-outline", number: num(float64(mt.RecentlyFinished))},
	} {
		m.sensor(spec)
	}

	if mt.HasGPU {
		gpu := mt.GPU
		for _, spec := range []sensorSpec{
			{key: "gpu_usage", name: "GPU Usage", icon: "mdi:expansion-card", unit: "%", number: num(gpu.GpuUsage)},
			{key: "gpu_memory_usage", name: "GPU Memory Usage", icon: "mdi:memory", unit: "%", number: num(gpu.MemoryUsage)},
			{key: "gpu_encoder_usage", name: "GPU Encoder Usage", icon: "mdi:video-input-component", unit: "%", number: num(gpu.EncoderUsage)},
			{key: "gpu_decoder_usage", name: "GPU Decoder Usage", icon: "mdi:video-input-component", unit: "%", number: num(gpu.DecoderUsage)},
			{key: "gpu_temperature", name: "GPU Temperature", icon: "mdi:thermometer", unit: "°C", deviceClass: "temperature", number: num(gpu.Temperature)},
		} {
			m.sensor(spec)
		}
	}
}

func (m *mapper) binarySensors() {
	mt := m.metrics
	for _, b := range []struct {
		key, name, icon, deviceClass string
		on                           bool
	}{
		{"paused", "Paused", "mdi:pause-circle", "", mt.IsPaused},
		{"processing", "Processing Active", "mdi:cog-play", "running", mt.IsProcessing},
		{"failed_files", "Has Failed Files", "mdi:alert-circle", "problem", mt.HasFailedFiles},
		{"queue", "Queue Not Empty", "mdi:tray-full", "", mt.QueueNotEmpty},
		{"update_available", "Update Available", "mdi:package-up", "update", mt.UpdateAvailable},
		{"all_nodes_enabled", "All Nodes Enabled", "mdi:server-network", "", mt.AllNodesEnabled},
	} {
		entity := &types.PMABinarySensorEntity{
			PMABaseEntity: m.base(types.EntityTypeBinarySensor, b.key, b.name, b.icon, types.BoolState(b.on), nil),
			DeviceClass:   b.deviceClass,
		}
		m.add(entity, nil)
	}
}

func (m *mapper) switchEntity(key, name, icon string, on bool, attributes map[string]interface{}, set func(ctx context.Context, on bool, action types.PMAControlAction) error) {
	entity := &types.PMASwitchEntity{
		PMABaseEntity: m.base(types.EntityTypeSwitch, key, name, icon, types.BoolState(on), attributes),
	}
	m.add(entity, switchControl(types.BoolState(on), set))
}

func (m *mapper) switches() {
	coord := m.coord

	m.switchEntity("processing", "Processing", "mdi:play-pause", !m.metrics.IsPaused, nil,
		func(ctx context.Context, on bool, action types.PMAControlAction) error {
			if on {
				return coord.Resume(ctx)
			}
			return coord.Pause(ctx, pauseMinutes(action))
		})

	for _, n := range fileflows.Nodes(m.snap.List(fileflows.ResourceNodes)) {
		uid := n.Uid
		if uid == "" {
			continue
		}
		m.switchEntity("node_"+uid, "Node "+displayName(n.Name, uid), "mdi:server", n.Enabled,
			map[string]interface{}{"uid": uid, "flow_runners": n.FlowRunners},
			func(ctx context.Context, on bool, _ types.PMAControlAction) error {
				return coord.SetNodeEnabled(ctx, uid, on)
			})
	}

	for _, l := range fileflows.Libraries(m.snap.List(fileflows.ResourceLibraries)) {
		uid := l.Uid
		if uid == "" {
			continue
		}
		attributes := map[string]interface{}{"uid": uid}
		if l.Path != "" {
			attributes["path"] = l.Path
		}
		m.switchEntity("library_"+uid, "Library "+displayName(l.Name, uid), "mdi:folder", l.Enabled, attributes,
			func(ctx context.Context, on bool, _ types.PMAControlAction) error {
				return coord.SetLibraryEnabled(ctx, uid, on)
			})
	}

	for _, f := range fileflows.Flows(m.snap.List(fileflows.ResourceFlows)) {
		uid := f.Uid
		if uid == "" {
			continue
		}
		m.switchEntity("flow_"+uid, "Flow "+displayName(f.Name, uid), "mdi:sitemap", f.Enabled,
			map[string]interface{}{"uid": uid},
			func(ctx context.Context, on bool, _ types.PMAControlAction) error {
				return coord.SetFlowEnabled(ctx, uid, on)
			})
	}
}

func (m *mapper) button(key, name, icon string, attributes map[string]interface{}, press func(ctx context.Context) error) {
	entity := &types.PMAButtonEntity{
		PMABaseEntity: m.base(types.EntityTypeButton, key, name, icon, types.StateIdle, attributes),
	}
	m.add(entity, buttonControl(press))
}

func (m *mapper) buttons() {
	coord := m.coord

	m.button("rescan_all", "Rescan All Libraries", "mdi:folder-refresh", nil, coord.RescanAll)
	m.button("restart", "Restart", "mdi:restart", nil, coord.Restart)

	for _, l := range fileflows.Libraries(m.snap.List(fileflows.ResourceLibraries)) {
		uid := l.Uid
		if uid == "" {
			continue
		}
		m.button("rescan_library_"+uid, "Rescan "+displayName(l.Name, uid), "mdi:folder-refresh-outline",
			map[string]interface{}{"uid": uid},
			func(ctx context.Context) error { return coord.RescanLibrary(ctx, uid) })
	}

	for _, t := range fileflows.Tasks(m.snap.List(fileflows.ResourceTasks)) {
		uid := t.Uid
		if uid == "" {
			continue
		}
		attributes := map[string]interface{}{"uid": uid}
		if t.Schedule != "" {
			attributes["schedule"] = t.Schedule
		}
		m.button("run_task_"+uid, "Run "+displayName(t.Name, uid), "mdi:play-circle", attributes,
			func(ctx context.Context) error { return coord.RunTask(ctx, uid) })
	}
}

func displayName(name, uid string) string {
	if name != "" {
		return name
	}
	return uid
}
