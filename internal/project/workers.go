package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/piwi3910/bakery/internal/model"
)

// DefaultWorkerSettingsPath returns ~/.bakery/workers.json.
func DefaultWorkerSettingsPath() string {
	return filepath.Join(DefaultConfigDir(), "workers.json")
}

// SaveWorkerSettings writes the worker settings to a JSON file.
func SaveWorkerSettings(path string, settings model.WorkerSettings) error {
	return writeJSON(path, settings)
}

// LoadWorkerSettings reads worker settings from a JSON file. A missing file
// yields settings with every worker enabled and no time limit.
func LoadWorkerSettings(path string) (model.WorkerSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewWorkerSettings(), nil
		}
		return model.WorkerSettings{}, err
	}
	settings := model.NewWorkerSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return model.WorkerSettings{}, err
	}
	if settings.Enabled == nil {
		settings.Enabled = map[string]bool{}
	}
	return settings, nil
}
