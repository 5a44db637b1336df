package nodes

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/validation"
	"github.com/kbukum/flowengine/workflow"
)

// decodeConfig copies node.Config into out through JSON so numeric and
// nested values land in typed fields.
func decodeConfig(node dag.Node, out any) error {
	if len(node.Config) == 0 {
		return nil
	}
	b, err := json.Marshal(node.Config)
	if err != nil {
		return fmt.Errorf("node %s: encode config: %w", node.ID, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("node %s: decode config: %w", node.ID, err)
	}
	return nil
}

// problems runs struct tag validation on cfg and returns one message per
// failing field.
func problems(cfg any) []string {
	err := validation.Validate(cfg)
	if err == nil {
		return nil
	}
	if fields, ok := validation.Fields(err); ok {
		return fields.Messages()
	}
	return []string{err.Error()}
}

// charge is the standard result of a built-in: the output plus the price of
// its type.
func charge(output any, cfg workflow.NodeTypeConfig) *workflow.NodeResult {
	return &workflow.NodeResult{Output: output, CreditsUsed: cfg.CreditsPerExecution}
}

// textOf renders a template against ec, falling back to the upstream output
// when the template is empty.
func textOf(ec *workflow.ExecutionContext, template string) string {
	if template != "" {
		return ec.Substitute(template)
	}
	if up := ec.Upstream(); up != nil {
		return workflow.Stringify(up)
	}
	return ""
}
