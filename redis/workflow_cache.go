package redis

import (
	"context"
	"time"

	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/workflow"
)

// WorkflowCache is a read-through cache of workflow definitions in front
// of another WorkflowStore. Cache failures fall back to the source.
type WorkflowCache struct {
	source workflow.WorkflowStore
	store  *TypedStore[workflow.Workflow]
	ttl    time.Duration
	log    *logger.Logger
}

var _ workflow.WorkflowStore = (*WorkflowCache)(nil)

// NewWorkflowCache caches source's workflows for ttl.
func NewWorkflowCache(client *Client, source workflow.WorkflowStore, ttl time.Duration) *WorkflowCache {
	return &WorkflowCache{
		source: source,
		store:  NewTypedStore[workflow.Workflow](client, "workflow"),
		ttl:    ttl,
		log:    client.log.WithComponent("redis.workflow_cache"),
	}
}

// FindWorkflow returns the cached definition or loads and caches it.
// Unknown ids are not cached.
func (c *WorkflowCache) FindWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	wf, err := c.store.Load(ctx, id)
	if err == nil && wf != nil {
		return wf, nil
	}
	if err != nil {
		c.log.Warn("Workflow cache read failed", logger.ErrorFields("load", err))
	}

	wf, err = c.source.FindWorkflow(ctx, id)
	if err != nil || wf == nil {
		return wf, err
	}
	if err := c.store.Save(ctx, id, wf, c.ttl); err != nil {
		c.log.Warn("Workflow cache write failed", logger.ErrorFields("save", err))
	}
	return wf, nil
}

// Invalidate drops id from the cache, e.g. after the workflow is republished.
func (c *WorkflowCache) Invalidate(ctx context.Context, id string) error {
	return c.store.Delete(ctx, id)
}
