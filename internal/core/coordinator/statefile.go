package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

// StateFile persists Snapshots as zstd-compressed JSON so a restart can
// serve stale data before the first tick.
type StateFile struct {
	path    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type stateDocument struct {
	Tick      uint64                               `json:"tick"`
	FetchedAt time.Time                            `json:"fetched_at"`
	Resources map[fileflows.Resource]interface{}   `json:"resources"`
	Sources   map[fileflows.Resource]ResourceState `json:"sources"`
}

// NewStateFile prepares a state file at path. The file itself is created on
// the first Save.
func NewStateFile(path string) (*StateFile, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is empty")
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &StateFile{path: path, encoder: encoder, decoder: decoder}, nil
}

// Path returns the file location.
func (f *StateFile) Path() string {
	return f.path
}

// Save writes s atomically.
func (f *StateFile) Save(s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	compressed := f.encoder.EncodeAll(data, nil)

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fileflows-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load reads the saved Snapshot. A missing file yields (nil, nil). Resources
// that no longer decode are left at their defaults.
func (f *StateFile) Load() (*Snapshot, error) {
	compressed, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	data, err := f.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress state file: %w", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}

	snap := emptySnapshot()
	snap.tick = doc.Tick
	snap.fetchedAt = doc.FetchedAt
	for _, r := range fileflows.AllResources() {
		raw, ok := doc.Resources[r]
		if !ok {
			continue
		}
		value, err := r.Decode(raw)
		if err != nil {
			continue
		}
		snap.values[r] = value
		if state, ok := doc.Sources[r]; ok {
			snap.states[r] = state
		}
	}
	return snap, nil
}

// Close releases the codec resources.
func (f *StateFile) Close() error {
	f.decoder.Close()
	return f.encoder.Close()
}

// Persist returns a subscriber that saves every published Snapshot.
func (f *StateFile) Persist(onError func(error)) func(Update) {
	return func(u Update) {
		if !u.Published {
			return
		}
		if err := f.Save(u.Snapshot); err != nil && onError != nil {
			onError(err)
		}
	}
}
