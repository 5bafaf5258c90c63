package coordinator

import (
	"math"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

const bytesPerGB = 1024 * 1024 * 1024

// Metrics are the read-only values derived from one Snapshot. Every field
// degrades to its zero value (or "Unknown" for the version) when the source
// data is missing.
type Metrics struct {
	QueueSize     int64 `json:"queue_size"`
	Unprocessed   int64 `json:"unprocessed"`
	Processing    int64 `json:"processing"`
	Processed     int64 `json:"processed"`
	Failed        int64 `json:"failed"`
	OnHold        int64 `json:"on_hold"`
	OutOfSchedule int64 `json:"out_of_schedule"`
	Disabled      int64 `json:"disabled"`

	ActiveWorkers   int     `json:"active_workers"`
	IsProcessing    bool    `json:"is_processing"`
	CurrentFile     string  `json:"current_file"`
	CurrentProgress float64 `json:"current_progress"`
	ProcessingTime  string  `json:"processing_time,omitempty"`

	Nodes            int `json:"nodes"`
	EnabledNodes     int `json:"enabled_nodes"`
	TotalRunners     int `json:"total_runners"`
	Libraries        int `json:"libraries"`
	EnabledLibraries int `json:"enabled_libraries"`
	Flows            int `json:"flows"`
	EnabledFlows     int `json:"enabled_flows"`
	Plugins          int `json:"plugins"`
	EnabledPlugins   int `json:"enabled_plugins"`
	Tasks            int `json:"tasks"`
	Upcoming         int `json:"upcoming"`
	RecentlyFinished int `json:"recently_finished"`

	StorageSavedBytes   int64           `json:"storage_saved_bytes"`
	StorageSavedGB      float64         `json:"storage_saved_gb"`
	StorageSavedPercent float64         `json:"storage_saved_percent"`
	LibrarySavings      []LibrarySaving `json:"library_savings"`

	HasGPU bool       `json:"has_gpu"`
	GPU    GPUMetrics `json:"gpu"`

	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	TempDirectoryGB float64 `json:"temp_directory_gb"`
	LogDirectoryGB  float64 `json:"log_directory_gb"`

	IsPaused        bool   `json:"is_paused"`
	UpdateAvailable bool   `json:"update_available"`
	Version         string `json:"version"`

	HasFailedFiles  bool `json:"has_failed_files"`
	QueueNotEmpty   bool `json:"queue_not_empty"`
	AllNodesEnabled bool `json:"all_nodes_enabled"`
}

// LibrarySaving is the storage saved for one library.
type LibrarySaving struct {
	Library      string  `json:"library"`
	OriginalSize int64   `json:"original_size"`
	FinalSize    int64   `json:"final_size"`
	SavedBytes   int64   `json:"saved_bytes"`
	SavedPercent float64 `json:"saved_percent"`
}

// GPUMetrics mirrors the nvidia-smi summary exposed by FileFlows.
type GPUMetrics struct {
	GpuUsage     float64 `json:"gpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
	EncoderUsage float64 `json:"encoder_usage"`
	DecoderUsage float64 `json:"decoder_usage"`
	Temperature  float64 `json:"temperature"`
}

// Derive computes Metrics from s without modifying it.
func Derive(s *Snapshot) Metrics {
	if s == nil {
		s = emptySnapshot()
	}
	var m Metrics

	deriveCounts(s, &m)
	deriveWorkers(s, &m)
	deriveInventory(s, &m)
	deriveStorage(s, &m)
	deriveSystem(s, &m)

	m.HasFailedFiles = m.Failed > 0
	m.QueueNotEmpty = m.QueueSize > 0
	m.AllNodesEnabled = m.Nodes > 0 && m.EnabledNodes == m.Nodes
	return m
}

// deriveCounts prefers the library-file status counts and falls back to the
// public status document.
func deriveCounts(s *Snapshot, m *Metrics) {
	files := s.object(fileflows.ResourceLibraryFileStatus)
	status := s.object(fileflows.ResourceStatus)

	if files.Has("Unprocessed") || files.Has("Processing") || files.Has("Processed") {
		m.Unprocessed = files.Int64("Unprocessed")
		m.Processing = files.Int64("Processing")
		m.Processed = files.Int64("Processed")
	} else {
		m.Unprocessed = status.Int64("Queue")
		m.Processing = status.Int64("Processing")
		m.Processed = status.Int64("Processed")
	}

	m.Failed = files.Int64("Failed")
	if m.Failed == 0 {
		m.Failed = files.Int64("ProcessingFailed")
	}
	m.OnHold = files.Int64("OnHold")
	m.OutOfSchedule = files.Int64("OutOfSchedule")
	m.Disabled = files.Int64("Disabled")
	m.QueueSize = m.Unprocessed + m.Processing
	m.ProcessingTime = status.String("Time")
}

func deriveWorkers(s *Snapshot, m *Metrics) {
	workers := fileflows.Workers(s.list(fileflows.ResourceWorkers))
	if len(workers) > 0 {
		m.ActiveWorkers = len(workers)
		m.CurrentFile = workers[0].FileName()
		m.CurrentProgress = workers[0].CurrentPartPercent
	} else {
		processing := s.object(fileflows.ResourceStatus).List("ProcessingFiles")
		m.ActiveWorkers = len(processing)
		if len(processing) > 0 {
			m.CurrentFile = processing[0].First("Name", "RelativePath")
			m.CurrentProgress = processing[0].Float("StepPercent")
		}
	}
	if m.ActiveWorkers > 0 && m.CurrentFile == "" {
		m.CurrentFile = fileflows.UnknownVersion
	}
	m.IsProcessing = m.ActiveWorkers > 0
}

func deriveInventory(s *Snapshot, m *Metrics) {
	nodes := fileflows.Nodes(s.list(fileflows.ResourceNodes))
	m.Nodes = len(nodes)
	for _, n := range nodes {
		if n.Enabled {
			m.EnabledNodes++
			m.TotalRunners += n.FlowRunners
		}
	}

	libraries := fileflows.Libraries(s.list(fileflows.ResourceLibraries))
	m.Libraries = len(libraries)
	for _, l := range libraries {
		if l.Enabled {
			m.EnabledLibraries++
		}
	}

	flows := fileflows.Flows(s.list(fileflows.ResourceFlows))
	m.Flows = len(flows)
	for _, f := range flows {
		if f.Enabled {
			m.EnabledFlows++
		}
	}

	plugins := fileflows.Plugins(s.list(fileflows.ResourcePlugins))
	m.Plugins = len(plugins)
	for _, p := range plugins {
		if p.Enabled {
			m.EnabledPlugins++
		}
	}

	m.Tasks = len(s.list(fileflows.ResourceTasks))
	m.Upcoming = len(s.list(fileflows.ResourceUpcoming))
	m.RecentlyFinished = len(s.list(fileflows.ResourceRecentlyFinished))
}

func deriveStorage(s *Snapshot, m *Metrics) {
	groups := fileflows.ShrinkageGroups(s.list(fileflows.ResourceShrinkage))
	m.StorageSavedBytes, m.StorageSavedPercent = StorageSavings(groups)
	m.StorageSavedGB = toGB(float64(m.StorageSavedBytes))

	m.LibrarySavings = make([]LibrarySaving, 0, len(groups))
	for _, g := range groups {
		saved, percent := StorageSavings([]fileflows.ShrinkageGroup{g})
		m.LibrarySavings = append(m.LibrarySavings, LibrarySaving{
			Library:      g.Library,
			OriginalSize: int64(g.OriginalSize),
			FinalSize:    int64(g.FinalSize),
			SavedBytes:   saved,
			SavedPercent: percent,
		})
	}
}

func deriveSystem(s *Snapshot, m *Metrics) {
	gpu := s.object(fileflows.ResourceGPU)
	m.HasGPU = len(gpu) > 0
	m.GPU = GPUMetrics{
		GpuUsage:     gpu.Float("GpuUsage"),
		MemoryUsage:  gpu.Float("MemoryUsage"),
		EncoderUsage: gpu.Float("EncoderUsage"),
		DecoderUsage: gpu.Float("DecoderUsage"),
		Temperature:  gpu.Float("Temperature"),
	}

	info := s.object(fileflows.ResourceSystemInfo)
	m.CPUUsage = info.Float("CpuUsage")
	m.MemoryUsage = info.Float("MemoryUsage")
	m.TempDirectoryGB = toGB(info.Float("TempDirectorySize"))
	m.LogDirectoryGB = toGB(info.Float("LogDirectorySize"))

	m.IsPaused = s.object(fileflows.ResourceFileFlowsStatus).Bool("IsPaused") || info.Bool("IsPaused")
	m.UpdateAvailable = s.Flag(fileflows.ResourceUpdateAvailable)
	m.Version = s.Text(fileflows.ResourceVersion)
}

// StorageSavings returns the bytes saved by the groups that shrank and the
// net saved share of the original size, rounded to one decimal. Groups that
// grew add nothing to the bytes but lower the percentage; a non-positive
// original total yields 0.0.
func StorageSavings(groups []fileflows.ShrinkageGroup) (int64, float64) {
	var saved, original, final float64
	for _, g := range groups {
		original += g.OriginalSize
		final += g.FinalSize
		if diff := g.OriginalSize - g.FinalSize; diff > 0 {
			saved += diff
		}
	}
	if original <= 0 {
		return int64(saved), 0.0
	}
	return int64(saved), round((original-final)/original*100, 1)
}

func toGB(bytes float64) float64 {
	if bytes <= 0 {
		return 0
	}
	return round(bytes/bytesPerGB, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
