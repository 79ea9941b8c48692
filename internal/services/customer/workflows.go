package customer

import (
	"sync"

	"tableside/internal/checkout"
	"tableside/internal/logger"
)

// workflowRegistry hands out one submission workflow per session, so the
// submitting-state guard applies per diner rather than across the service.
type workflowRegistry struct {
	mu        sync.Mutex
	store     checkout.OrderStore
	logger    *logger.Logger
	workflows map[string]*checkout.Workflow
}

func newWorkflowRegistry(store checkout.OrderStore, log *logger.Logger) *workflowRegistry {
	return &workflowRegistry{
		store:     store,
		logger:    log,
		workflows: make(map[string]*checkout.Workflow),
	}
}

func (r *workflowRegistry) forSession(sessionID string) *checkout.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	wf, ok := r.workflows[sessionID]
	if !ok {
		wf = checkout.NewWorkflow(r.store, r.logger)
		r.workflows[sessionID] = wf
	}
	return wf
}
