// Package preset provides named cwebp encoding presets. The built-in set is
// embedded; a user preset file can add to or override it.
package preset

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinYAML []byte

// Preset is one named cwebp argument template.
type Preset struct {
	Name    string   `yaml:"name"`
	Quality int      `yaml:"quality"`
	Method  int      `yaml:"method"`
	Passes  int      `yaml:"passes"`
	Filter  int      `yaml:"filter"`
	Extra   []string `yaml:"extra"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Library is a named collection of presets.
type Library struct {
	byName map[string]Preset
	order  []string
}

// Builtin returns the embedded preset library.
func Builtin() (*Library, error) {
	return parse(builtinYAML)
}

// Load returns the built-in library merged with the presets from path, if
// any. User presets with a known name replace the built-in definition; new
// names are appended.
func Load(path string) (*Library, error) {
	lib, err := Builtin()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, err
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing preset file %s: %w", path, err)
	}
	for _, p := range pf.Presets {
		lib.put(p)
	}
	return lib, nil
}

func parse(data []byte) (*Library, error) {
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}

	lib := &Library{byName: make(map[string]Preset, len(pf.Presets))}
	for _, p := range pf.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset without a name")
		}
		lib.put(p)
	}
	return lib, nil
}

func (l *Library) put(p Preset) {
	if _, exists := l.byName[p.Name]; !exists {
		l.order = append(l.order, p.Name)
	}
	l.byName[p.Name] = p
}

// Get returns the preset with the given name.
func (l *Library) Get(name string) (Preset, bool) {
	p, ok := l.byName[name]
	return p, ok
}

// Names returns all preset names in definition order.
func (l *Library) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
