package workflow

import (
	"fmt"
	"time"

	"github.com/kbukum/flowengine/dag"
)

// Config tunes the engine and the reservation sweeper.
type Config struct {
	// Timeout is the wall-clock budget of one run, checked between nodes.
	Timeout time.Duration `mapstructure:"timeout"`
	// ElevatedRoles may run and inspect workflows they do not own.
	ElevatedRoles []string `mapstructure:"elevated_roles"`
	// StartType is the node type a graph must contain exactly once.
	StartType string `mapstructure:"start_type"`
	// SinglePredecessorTypes must have exactly one incoming edge.
	SinglePredecessorTypes []string `mapstructure:"single_predecessor_types"`
	// SweepGrace is added to Timeout before a pending reservation counts as orphaned.
	SweepGrace time.Duration `mapstructure:"sweep_grace"`
	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// SweepBatch caps the reservations recovered per sweep.
	SweepBatch int `mapstructure:"sweep_batch"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	rules := dag.DefaultRules()
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if len(c.ElevatedRoles) == 0 {
		c.ElevatedRoles = []string{"admin", "super_admin"}
	}
	if c.StartType == "" {
		c.StartType = rules.StartType
	}
	if c.SinglePredecessorTypes == nil {
		c.SinglePredecessorTypes = rules.SinglePredecessor
	}
	if c.SweepGrace <= 0 {
		c.SweepGrace = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 100
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("workflow timeout must be positive")
	}
	if c.StartType == "" {
		return fmt.Errorf("workflow start_type is required")
	}
	if c.SweepBatch <= 0 {
		return fmt.Errorf("workflow sweep_batch must be positive")
	}
	return nil
}

func (c *Config) rules() dag.Rules {
	return dag.Rules{StartType: c.StartType, SinglePredecessor: c.SinglePredecessorTypes}
}

func (c *Config) elevated(role string) bool {
	for _, r := range c.ElevatedRoles {
		if r == role {
			return true
		}
	}
	return false
}
