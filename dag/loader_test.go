package dag

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const summarizeYAML = `
id: summarize
name: Summarize
owner: user-1
published: true
nodes:
  - id: start
    type: start
  - id: notes
    type: knowledge
    depends_on: [start]
    config:
      query: "{{start.topic}}"
      top_k: 3
  - id: summary
    type: llm
    depends_on: [notes]
    config:
      prompt: "Summarize {{notes}}"
edges:
  - source: start
    target: summary_end
`

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "summarize.yaml", summarizeYAML)
	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "summarize" || d.Owner != "user-1" || !d.Published {
		t.Fatalf("unexpected header: %+v", d)
	}
	if len(d.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(d.Nodes))
	}
	if d.Nodes[1].Config["top_k"] != 3 {
		t.Errorf("expected top_k=3, got %v", d.Nodes[1].Config["top_k"])
	}

	g := d.Graph()
	want := []Edge{
		{Source: "start", Target: "summary_end"},
		{Source: "start", Target: "notes"},
		{Source: "notes", Target: "summary"},
	}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Fatalf("expected %v, got %v", want, g.Edges)
	}
	if g.Nodes[2].Type != "llm" {
		t.Errorf("expected llm node, got %+v", g.Nodes[2])
	}
}

func TestLoadFile_MissingID(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "bad.yaml", "nodes: []\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "bad.yaml", "id: [\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDirLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "summarize.yml", summarizeYAML)

	d, err := NewDirLoader(t.TempDir(), dir).Load("summarize")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "summarize" {
		t.Fatalf("expected summarize, got %q", d.ID)
	}

	if _, err := NewDirLoader(dir).Load("nonexistent"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDirLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "b.yaml", "id: beta\nowner: u\nnodes:\n  - id: s\n    type: start\n")
	writeYAML(t, dir, "a.yml", "id: alpha\nowner: u\nnodes:\n  - id: s\n    type: start\n")
	writeYAML(t, dir, "notes.txt", "ignored")

	defs, err := NewDirLoader(dir).LoadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	// *.yaml is globbed before *.yml, then all paths are sorted.
	if defs[0].ID != "alpha" || defs[1].ID != "beta" {
		t.Errorf("expected [alpha beta], got [%s %s]", defs[0].ID, defs[1].ID)
	}
}

func TestDirLoader_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "one.yaml", "id: same\nnodes: []\n")
	writeYAML(t, dir, "two.yaml", "id: same\nnodes: []\n")
	if _, err := NewDirLoader(dir).LoadAll(); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
