package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the persisted record of the last known phase. It is
// advisory only: `status` and `resume` display it, but control flow is
// always re-derived from live detection.
type Checkpoint struct {
	Phase     string    `json:"phase"`
	Detail    string    `json:"detail"`
	Disk      string    `json:"disk"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and overwrites the single checkpoint record at a
// well-known location.
type Store struct {
	path string
}

// NewStore creates a checkpoint store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the checkpoint atomically (write-then-rename) so an
// interrupted write never leaves a torn record.
func (s *Store) Save(phase Phase, detail, disk, runID string) error {
	cp := Checkpoint{
		Phase:     phase.String(),
		Detail:    detail,
		Disk:      disk,
		RunID:     runID,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// Load reads the current checkpoint. A missing file returns (nil, nil):
// no run has checkpointed yet.
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", s.path, err)
	}
	return &cp, nil
}
