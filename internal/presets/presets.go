package presets

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Role is one agent role inside a mode preset. Prompt is the role's
// standing instructions; the swarm manager prepends the job objective.
type Role struct {
	Label  string `yaml:"label" json:"label"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Mode is a named swarm mode with its default agent roles.
type Mode struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Roles       []Role `yaml:"roles" json:"roles"`
}

// Library holds the loaded mode presets, preserving file order.
type Library struct {
	modes map[string]Mode
	order []string
}

type presetFile struct {
	Modes []Mode `yaml:"modes"`
}

// Load reads mode presets from path; an empty path loads the embedded
// defaults.
func Load(path string) (*Library, error) {
	data := defaultPresets
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read presets file: %w", err)
		}
		data = b
	}
	return parse(data)
}

func parse(data []byte) (*Library, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(file.Modes) == 0 {
		return nil, fmt.Errorf("presets define no modes")
	}

	lib := &Library{modes: make(map[string]Mode)}
	for _, m := range file.Modes {
		if m.Name == "" {
			return nil, fmt.Errorf("preset mode with empty name")
		}
		if _, dup := lib.modes[m.Name]; dup {
			return nil, fmt.Errorf("duplicate preset mode: %s", m.Name)
		}
		if len(m.Roles) == 0 {
			return nil, fmt.Errorf("preset mode %s has no roles", m.Name)
		}
		for _, r := range m.Roles {
			if r.Label == "" || r.Prompt == "" {
				return nil, fmt.Errorf("preset mode %s has a role with an empty label or prompt", m.Name)
			}
		}
		lib.modes[m.Name] = m
		lib.order = append(lib.order, m.Name)
	}
	return lib, nil
}

// Get returns the preset for a mode name.
func (l *Library) Get(mode string) (Mode, bool) {
	m, ok := l.modes[mode]
	return m, ok
}

// List returns all modes in file order.
func (l *Library) List() []Mode {
	out := make([]Mode, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.modes[name])
	}
	return out
}
