package workflow

import "testing"

func TestExecutionContext_OutputsOnlyGrow(t *testing.T) {
	ec := NewExecutionContext("e1", "w1", nil)
	if ec.Input() == nil {
		t.Fatal("nil input should become an empty map")
	}
	if err := ec.setOutput("a", "one"); err != nil {
		t.Fatalf("setOutput: %v", err)
	}
	if err := ec.setOutput("a", "two"); err == nil {
		t.Fatal("expected error on second write for the same node")
	}
	if v, _ := ec.Variable("a"); v != "one" {
		t.Errorf("Variable(a) = %v, want one", v)
	}
}

func TestExecutionContext_VariablesIsACopy(t *testing.T) {
	ec := NewExecutionContext("e1", "w1", nil)
	_ = ec.setOutput("a", 1)

	vars := ec.Variables()
	vars["b"] = 2
	if _, ok := ec.Variable("b"); ok {
		t.Fatal("mutating the copy leaked into the context")
	}
}

func TestExecutionContext_Substitute(t *testing.T) {
	ec := NewExecutionContext("e1", "w1", map[string]any{"q": "x"})
	_ = ec.setOutput("start", map[string]any{"q": "x"})

	if got := ec.Substitute("{{start.q}} {{next}}"); got != "x {{next}}" {
		t.Errorf("Substitute = %q", got)
	}
}

func TestPreviewContext(t *testing.T) {
	ec := PreviewContext(nil, "up", map[string]any{"n": 1})
	if ec.Upstream() != "up" {
		t.Errorf("Upstream = %v", ec.Upstream())
	}
	if v, ok := ec.Variable("n"); !ok || v != 1 {
		t.Errorf("Variable(n) = %v, %v", v, ok)
	}
	if ec.ExecutionID() != "" {
		t.Errorf("preview should have no execution id")
	}
}
