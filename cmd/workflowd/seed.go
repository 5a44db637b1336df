package main

import (
	"context"
	"fmt"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/workflow"
)

type workflowSeeder interface {
	SaveWorkflow(ctx context.Context, wf *workflow.Workflow) error
	SaveNodeTypeConfig(ctx context.Context, cfg workflow.NodeTypeConfig) error
}

type accountSeeder interface {
	Balance(ctx context.Context, userID string) (int64, error)
	SetRole(ctx context.Context, userID, role string) error
	AddCredits(ctx context.Context, userID string, amount int64, reason, ref string, extra map[string]any) error
}

type seedReport struct {
	Workflows int
	NodeTypes int
	Accounts  int
}

// seeder upserts configured workflows, pricing and accounts.
type seeder struct {
	cfg        SeedConfig
	rules      dag.Rules
	workflows  workflowSeeder
	accounts   accountSeeder
	invalidate func(ctx context.Context, id string) error
	log        *logger.Logger
}

func (s *seeder) Run(ctx context.Context) (seedReport, error) {
	var report seedReport

	if len(s.cfg.WorkflowDirs) > 0 {
		defs, err := dag.NewDirLoader(s.cfg.WorkflowDirs...).LoadAll()
		if err != nil {
			return report, fmt.Errorf("load workflows: %w", err)
		}
		for _, def := range defs {
			if err := s.saveWorkflow(ctx, def); err != nil {
				return report, err
			}
			report.Workflows++
		}
	}

	for _, nt := range s.cfg.NodeTypes {
		err := s.workflows.SaveNodeTypeConfig(ctx, workflow.NodeTypeConfig{
			Type:                nt.Type,
			CreditsPerExecution: nt.Credits,
			IsActive:            !nt.Inactive,
		})
		if err != nil {
			return report, fmt.Errorf("seed node type %s: %w", nt.Type, err)
		}
		report.NodeTypes++
	}

	for _, acct := range s.cfg.Accounts {
		opened, err := s.openAccount(ctx, acct)
		if err != nil {
			return report, fmt.Errorf("seed account %s: %w", acct.UserID, err)
		}
		if opened {
			report.Accounts++
		}
	}

	s.log.Info("Seed data loaded", logger.Fields(
		"workflows", report.Workflows,
		"node_types", report.NodeTypes,
		"accounts", report.Accounts,
	))
	return report, nil
}

func (s *seeder) saveWorkflow(ctx context.Context, def *dag.Definition) error {
	g := def.Graph()
	if err := dag.Validate(g, s.rules); err != nil {
		return fmt.Errorf("workflow %s: %w", def.ID, err)
	}
	name := def.Name
	if name == "" {
		name = def.ID
	}
	wf := &workflow.Workflow{
		ID:          def.ID,
		OwnerID:     def.Owner,
		Name:        name,
		Description: def.Description,
		Graph:       *g,
		Published:   def.Published,
	}
	if err := s.workflows.SaveWorkflow(ctx, wf); err != nil {
		return fmt.Errorf("save workflow %s: %w", def.ID, err)
	}
	if s.invalidate != nil {
		if err := s.invalidate(ctx, def.ID); err != nil {
			s.log.Warn("Workflow cache invalidation failed", logger.Fields(
				logger.FieldWorkflowID, def.ID,
				logger.FieldError, err.Error(),
			))
		}
	}
	s.log.Debug("Workflow seeded", logger.Fields(logger.FieldWorkflowID, def.ID, "nodes", len(g.Nodes)))
	return nil
}

// openAccount sets the role and, for an empty account, the opening balance.
// It reports whether credits were granted.
func (s *seeder) openAccount(ctx context.Context, acct AccountSeed) (bool, error) {
	if acct.Role != "" {
		if err := s.accounts.SetRole(ctx, acct.UserID, acct.Role); err != nil {
			return false, err
		}
	}
	balance, err := s.accounts.Balance(ctx, acct.UserID)
	if err != nil {
		return false, err
	}
	if balance > 0 || acct.Credits == 0 {
		return false, nil
	}
	if err := s.accounts.AddCredits(ctx, acct.UserID, acct.Credits, "seed", "", nil); err != nil {
		return false, err
	}
	return true, nil
}
