package policy

import (
	"embed"
	"fmt"
	"sort"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

//go:embed presets/*.yaml
var presetFS embed.FS

var presetFiles = map[string]string{
	"default": "presets/default.yaml",
	"strict":  "presets/strict.yaml",
}

// Preset returns the named built-in gate policy.
func Preset(name string) (*models.GateConfig, error) {
	data, err := PresetSource(name)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// PresetSource returns the YAML of the named built-in gate policy.
func PresetSource(name string) ([]byte, error) {
	path, ok := presetFiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown gate preset %q", name)
	}
	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset %q: %w", name, err)
	}
	return data, nil
}

// PresetNames lists built-in presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
