package dag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Definition is a workflow as written in a YAML file.
//
//	id: summarize
//	owner: user-1
//	published: true
//	nodes:
//	  - id: start
//	    type: start
//	  - id: summary
//	    type: llm
//	    depends_on: [start]
//	    config:
//	      prompt: "Summarize {{start.text}}"
//
// Edges may be listed explicitly, declared per node with depends_on, or both.
type Definition struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Owner       string    `yaml:"owner"`
	Published   bool      `yaml:"published"`
	Nodes       []NodeDef `yaml:"nodes"`
	Edges       []Edge    `yaml:"edges,omitempty"`
}

// NodeDef is a node plus the ids it depends on.
type NodeDef struct {
	Node      `yaml:",inline"`
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// Graph converts the definition into a Graph. Explicit edges come first,
// followed by depends_on edges in node order.
func (d *Definition) Graph() *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(d.Nodes)),
		Edges: append([]Edge(nil), d.Edges...),
	}
	for _, def := range d.Nodes {
		g.Nodes = append(g.Nodes, def.Node)
		for _, dep := range def.DependsOn {
			g.Edges = append(g.Edges, Edge{Source: dep, Target: def.ID})
		}
	}
	return g
}

// LoadFile reads one workflow definition from path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("dag: parsing %s: %w", path, err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("dag: %s: workflow id is required", path)
	}
	return &d, nil
}

// DirLoader loads workflow definitions from YAML files in a set of
// directories.
type DirLoader struct {
	dirs []string
}

// NewDirLoader creates a loader over dirs.
func NewDirLoader(dirs ...string) *DirLoader {
	return &DirLoader{dirs: dirs}
}

// Load returns the definition whose file is named id.yaml or id.yml.
func (l *DirLoader) Load(id string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, id+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("dag: workflow %q not found in %v", id, l.dirs)
}

// LoadAll reads every *.yaml and *.yml file in the loader's directories,
// sorted by path. Duplicate ids are an error.
func (l *DirLoader) LoadAll() ([]*Definition, error) {
	var paths []string
	for _, dir := range l.dirs {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
		}
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	defs := make([]*Definition, 0, len(paths))
	for _, path := range paths {
		d, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[d.ID]; ok {
			return nil, fmt.Errorf("dag: workflow %q defined in both %s and %s", d.ID, prev, path)
		}
		seen[d.ID] = path
		defs = append(defs, d)
	}
	return defs, nil
}
