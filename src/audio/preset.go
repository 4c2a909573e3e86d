package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const presetExt = ".yaml"

// PresetManager stores patches as YAML documents, one file per preset.
type PresetManager struct {
	dir string
}

// NewPresetManager ...
func NewPresetManager(dir string) *PresetManager {
	return &PresetManager{
		dir: dir,
	}
}

// Dir ...
func (pm *PresetManager) Dir() string {
	return pm.dir
}

// List returns preset names in alphabetical order.
func (pm *PresetManager) List() ([]string, error) {
	entries, err := os.ReadDir(pm.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != presetExt {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), presetExt))
	}
	sort.Strings(names)
	return names, nil
}

func (pm *PresetManager) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid preset name %q", name)
	}
	return filepath.Join(pm.dir, name+presetExt), nil
}

// Load ...
func (pm *PresetManager) Load(name string) (*Patch, error) {
	path, err := pm.path(name)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := &Patch{}
	if err := yaml.Unmarshal(bytes, p); err != nil {
		return nil, fmt.Errorf("failed to parse preset %q: %w", name, err)
	}
	return p, nil
}

// Save ...
func (pm *PresetManager) Save(name string, p *Patch) error {
	path, err := pm.path(name)
	if err != nil {
		return err
	}
	bytes, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pm.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0o644)
}
