// Package bundleconfig models the build configuration handed to the bundler
// and resolves it from the base configuration plus an optional override.
//
// The resolved configuration's output path always comes from the base,
// whatever the override says, so build output lands in a predictable place.
package bundleconfig

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the build configuration passed to the bundler.
type Config struct {
	Entry         map[string]EntryPoint `yaml:"entry,omitempty" json:"entry,omitempty"`
	Output        Output                `yaml:"output,omitempty" json:"output"`
	Module        Module                `yaml:"module,omitempty" json:"module"`
	Plugins       []Plugin              `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Resolve       Resolve               `yaml:"resolve,omitempty" json:"resolve"`
	Devtool       string                `yaml:"devtool,omitempty" json:"devtool,omitempty"`
	ResolveLoader ResolveLoader         `yaml:"resolveLoader,omitempty" json:"resolveLoader"`
}

type Output struct {
	Path       string `yaml:"path,omitempty" json:"path"`
	Filename   string `yaml:"filename,omitempty" json:"filename,omitempty"`
	PublicPath string `yaml:"publicPath,omitempty" json:"publicPath,omitempty"`
}

type Module struct {
	Rules []Rule `yaml:"rules,omitempty" json:"rules"`
}

// Rule is one module transform rule. Test, Include and Exclude are
// patterns interpreted by the bundler.
type Rule struct {
	Test    string         `yaml:"test,omitempty" json:"test,omitempty"`
	Include string         `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude string         `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Enforce string         `yaml:"enforce,omitempty" json:"enforce,omitempty"`
	Loader  string         `yaml:"loader,omitempty" json:"loader,omitempty"`
	Use     []Loader       `yaml:"use,omitempty" json:"use,omitempty"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

type Loader struct {
	Loader  string         `yaml:"loader" json:"loader"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

type Plugin struct {
	Name    string         `yaml:"name" json:"name"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

type Resolve struct {
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

type ResolveLoader struct {
	Modules []string `yaml:"modules,omitempty" json:"modules,omitempty"`
}

// EntryPoint is the ordered list of modules that make up one named entry.
// A single path is written as a plain string in YAML and JSON.
type EntryPoint []string

// Main returns the entry's own module, the last element of the list.
func (e EntryPoint) Main() string {
	if len(e) == 0 {
		return ""
	}
	return e[len(e)-1]
}

func (e *EntryPoint) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*e = EntryPoint{node.Value}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}
		*e = paths
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a path or a list of paths", node.Line)
	}
}

func (e EntryPoint) MarshalYAML() (interface{}, error) {
	if len(e) == 1 {
		return e[0], nil
	}
	return []string(e), nil
}

func (e *EntryPoint) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = EntryPoint{single}
		return nil
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return fmt.Errorf("entry must be a path or a list of paths: %w", err)
	}
	*e = paths
	return nil
}

func (e EntryPoint) MarshalJSON() ([]byte, error) {
	if len(e) == 1 {
		return json.Marshal(e[0])
	}
	return json.Marshal([]string(e))
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	out := &Config{
		Output:  c.Output,
		Devtool: c.Devtool,
	}

	if c.Entry != nil {
		out.Entry = make(map[string]EntryPoint, len(c.Entry))
		for name, entry := range c.Entry {
			out.Entry[name] = append(EntryPoint(nil), entry...)
		}
	}

	if c.Module.Rules != nil {
		out.Module.Rules = make([]Rule, len(c.Module.Rules))
		for i, rule := range c.Module.Rules {
			out.Module.Rules[i] = rule.clone()
		}
	}

	if c.Plugins != nil {
		out.Plugins = make([]Plugin, len(c.Plugins))
		for i, p := range c.Plugins {
			out.Plugins[i] = Plugin{Name: p.Name, Options: cloneMap(p.Options)}
		}
	}

	out.Resolve.Extensions = cloneStrings(c.Resolve.Extensions)
	out.ResolveLoader.Modules = cloneStrings(c.ResolveLoader.Modules)

	return out
}

func (r Rule) clone() Rule {
	out := r
	out.Options = cloneMap(r.Options)
	if r.Use != nil {
		out.Use = make([]Loader, len(r.Use))
		for i, l := range r.Use {
			out.Use[i] = Loader{Loader: l.Loader, Options: cloneMap(l.Options)}
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return cloneStrings(t)
	default:
		return v
	}
}
