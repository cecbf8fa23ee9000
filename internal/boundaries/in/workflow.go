package in

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// WorkflowService runs an ordered list of refresh steps.
type WorkflowService interface {
	Run(ctx context.Context, steps []domain.StepDefinition, params domain.RefreshParams, skip map[domain.StepID]bool) *domain.WorkflowRun
}
