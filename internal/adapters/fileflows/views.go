package fileflows

// Typed views over the list resources. Only the fields used for derived
// metrics and entities are typed; the rest stays in Extra.

// Node is a processing node.
type Node struct {
	Uid         string                 `mapstructure:"Uid" json:"uid"`
	Name        string                 `mapstructure:"Name" json:"name"`
	Enabled     bool                   `mapstructure:"Enabled" json:"enabled"`
	FlowRunners int                    `mapstructure:"FlowRunners" json:"flow_runners"`
	Extra       map[string]interface{} `mapstructure:",remain" json:"-"`
}

// Library is a watched media library.
type Library struct {
	Uid     string                 `mapstructure:"Uid" json:"uid"`
	Name    string                 `mapstructure:"Name" json:"name"`
	Enabled bool                   `mapstructure:"Enabled" json:"enabled"`
	Path    string                 `mapstructure:"Path" json:"path,omitempty"`
	Extra   map[string]interface{} `mapstructure:",remain" json:"-"`
}

// Flow is a processing flow definition.
type Flow struct {
	Uid     string                 `mapstructure:"Uid" json:"uid"`
	Name    string                 `mapstructure:"Name" json:"name"`
	Enabled bool                   `mapstructure:"Enabled" json:"enabled"`
	Extra   map[string]interface{} `mapstructure:",remain" json:"-"`
}

// Task is a scheduled server task.
type Task struct {
	Uid      string                 `mapstructure:"Uid" json:"uid"`
	Name     string                 `mapstructure:"Name" json:"name"`
	Schedule string                 `mapstructure:"Schedule" json:"schedule,omitempty"`
	Extra    map[string]interface{} `mapstructure:",remain" json:"-"`
}

// Plugin is an installed plugin.
type Plugin struct {
	Uid     string                 `mapstructure:"Uid" json:"uid"`
	Name    string                 `mapstructure:"Name" json:"name"`
	Enabled bool                   `mapstructure:"Enabled" json:"enabled"`
	Extra   map[string]interface{} `mapstructure:",remain" json:"-"`
}

// ShrinkageGroup is the size saving of one library.
type ShrinkageGroup struct {
	Library      string                 `mapstructure:"Library" json:"library"`
	OriginalSize float64                `mapstructure:"OriginalSize" json:"original_size"`
	FinalSize    float64                `mapstructure:"FinalSize" json:"final_size"`
	Items        int                    `mapstructure:"Items" json:"items"`
	Extra        map[string]interface{} `mapstructure:",remain" json:"-"`
}

// Worker is one running flow executor.
type Worker struct {
	Uid                string                 `mapstructure:"Uid" json:"uid"`
	NodeName           string                 `mapstructure:"NodeName" json:"node_name,omitempty"`
	CurrentFile        string                 `mapstructure:"CurrentFile" json:"current_file,omitempty"`
	CurrentPartName    string                 `mapstructure:"CurrentPartName" json:"current_part_name,omitempty"`
	CurrentPart        int                    `mapstructure:"CurrentPart" json:"current_part"`
	TotalParts         int                    `mapstructure:"TotalParts" json:"total_parts"`
	CurrentPartPercent float64                `mapstructure:"CurrentPartPercent" json:"current_part_percent"`
	LibraryFile        map[string]interface{} `mapstructure:"LibraryFile" json:"-"`
	Extra              map[string]interface{} `mapstructure:",remain" json:"-"`
}

// FileName returns the name of the file being processed, preferring the
// explicit CurrentFile over the nested LibraryFile record.
func (w Worker) FileName() string {
	if w.CurrentFile != "" {
		return w.CurrentFile
	}
	return Record(w.LibraryFile).First("Name", "RelativePath")
}

// Nodes decodes every element of list into a Node.
func Nodes(list []Record) []Node {
	return decodeAll[Node](list)
}

// Libraries decodes every element of list into a Library.
func Libraries(list []Record) []Library {
	return decodeAll[Library](list)
}

// Flows decodes every element of list into a Flow.
func Flows(list []Record) []Flow {
	return decodeAll[Flow](list)
}

// Tasks decodes every element of list into a Task.
func Tasks(list []Record) []Task {
	return decodeAll[Task](list)
}

// Plugins decodes every element of list into a Plugin.
func Plugins(list []Record) []Plugin {
	return decodeAll[Plugin](list)
}

// ShrinkageGroups decodes every element of list into a ShrinkageGroup.
func ShrinkageGroups(list []Record) []ShrinkageGroup {
	return decodeAll[ShrinkageGroup](list)
}

// Workers decodes every element of list into a Worker.
func Workers(list []Record) []Worker {
	return decodeAll[Worker](list)
}

// decodeAll keeps partially decoded elements: a field of the wrong type
// zeroes that field only.
func decodeAll[T any](list []Record) []T {
	out := make([]T, 0, len(list))
	for _, rec := range list {
		var v T
		_ = rec.Decode(&v)
		out = append(out, v)
	}
	return out
}
