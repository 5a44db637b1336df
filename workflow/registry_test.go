package workflow

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/logger"
)

func constant(out any) Constructor {
	return func(dag.Node) (Node, error) {
		return NodeFunc(func(context.Context, *ExecutionContext, string, NodeTypeConfig) (*NodeResult, error) {
			return &NodeResult{Output: out}, nil
		}), nil
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("start", constant("s"))
	r.Register("llm", constant("l"))

	if !r.Has("llm") || r.Has("nope") {
		t.Fatal("Has reported wrong membership")
	}
	if got := r.Types(); !reflect.DeepEqual(got, []string{"llm", "start"}) {
		t.Errorf("Types() = %v", got)
	}

	n, err := r.Create(dag.Node{ID: "a", Type: "llm"})
	if err != nil || n == nil {
		t.Fatalf("Create = %v, %v", n, err)
	}
	res, _ := n.Execute(context.Background(), NewExecutionContext("", "", nil), "u", NodeTypeConfig{})
	if res.Output != "l" {
		t.Errorf("Output = %v", res.Output)
	}
}

func TestRegistry_UnknownTypeIsNil(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	n, err := r.Create(dag.Node{ID: "a", Type: "mystery"})
	if n != nil || err != nil {
		t.Fatalf("Create = %v, %v; want nil, nil", n, err)
	}
}

func TestRegistry_OverrideReplaces(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("x", constant(1))
	r.Register("x", constant(2))

	n, _ := r.Create(dag.Node{ID: "a", Type: "x"})
	res, _ := n.Execute(context.Background(), NewExecutionContext("", "", nil), "", NodeTypeConfig{})
	if res.Output != 2 {
		t.Errorf("Output = %v, want the later registration", res.Output)
	}
}

func TestRegistry_ConstructorError(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	boom := errors.New("bad config")
	r.Register("x", func(dag.Node) (Node, error) { return nil, boom })

	if _, err := r.Create(dag.Node{ID: "a", Type: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
