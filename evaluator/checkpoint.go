package evaluator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// checkpointFile is the JSON shape of a persisted snapshot.
type checkpointFile struct {
	Arch    Arch          `json:"arch"`
	Inputs  int           `json:"inputs"`
	Actions int           `json:"actions"`
	Version int           `json:"version"`
	Weights [][][]float64 `json:"weights"`
}

// Save persists the snapshot to path via a temp file and atomic rename.
func (n *Network) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	buf, err := json.Marshal(checkpointFile{
		Arch:    n.arch,
		Inputs:  n.inputs,
		Actions: n.actions,
		Version: n.version,
		Weights: n.net.Dump().Weights,
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize checkpoint: %w", err)
	}
	return nil
}

// Load restores a snapshot persisted by Save.
func Load(path string) (*Network, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var file checkpointFile
	if err := json.Unmarshal(buf, &file); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	n, err := NewNetwork(file.Inputs, file.Actions, file.Arch)
	if err != nil {
		return nil, fmt.Errorf("rebuild checkpoint network: %w", err)
	}
	n.net.ApplyWeights(file.Weights)
	n.version = file.Version
	return n, nil
}
