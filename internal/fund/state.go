package fund

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TickSentinel/internal/model"
)

// LoadState reads a portfolio snapshot from a JSON file. Returns a zero snapshot if the file doesn't exist.
func LoadState(filePath string) (*model.PortfolioSnapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PortfolioSnapshot{}, nil
		}
		return nil, err
	}
	var snap model.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &snap, nil
}

// SaveState writes the snapshot to a JSON file, replacing it atomically.
func SaveState(filePath string, snap *model.PortfolioSnapshot) error {
	snap.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// StatePath returns the snapshot file of one agent inside dir.
func StatePath(dir, agent string) string {
	return filepath.Join(dir, agent+".json")
}
