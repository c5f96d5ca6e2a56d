package strategy

import (
	"context"
	"fmt"

	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/pool"
)

// Native plans directly against the Command Pool; no build-file emission
// is required, making it the fastest strategy for iterative builds
// (spec §4.7).
type Native struct {
	pool    *pool.Pool
	targets []model.Target
}

func NewNative(maxJobs int) *Native {
	return &Native{pool: pool.New(maxJobs)}
}

func (n *Native) Name() string { return "native" }

func (n *Native) Initialize(ctx context.Context) error { return nil }

func (n *Native) AddTarget(t model.Target) error {
	n.targets = append(n.targets, t)
	return nil
}

func (n *Native) PreBuild(ctx context.Context) error { return nil }

// BuildTarget dispatches plan.CompileBatches one batch at a time: each
// batch's commands run concurrently through the pool, but a batch does
// not start until its predecessor has finished, so a module interface's
// BMI is always on disk before the importer that needs it compiles
// (spec §4.4 "Ordering", §4.7 "Native ... Honors modules").
func (n *Native) BuildTarget(ctx context.Context, plan *BuildPlan) error {
	for i, batch := range plan.CompileBatches {
		if len(batch) == 0 {
			continue
		}
		job := &model.Job{
			Name:      fmt.Sprintf("%s-compile-%d", plan.Target.TargetName(), i),
			Commands:  batch,
			KeepGoing: plan.KeepGoing,
		}
		result := n.pool.Run(ctx, job)
		if result.Err != nil {
			return result.Err
		}
	}
	if plan.LinkCommand != nil {
		job := &model.Job{
			Name:     plan.Target.TargetName() + "-link",
			Commands: []*model.Cmd{plan.LinkCommand},
		}
		result := n.pool.Run(ctx, job)
		if result.Err != nil {
			return fmt.Errorf("strategy: link %s: %w", plan.Target.TargetName(), result.Err)
		}
	}
	return nil
}

func (n *Native) PostBuild(ctx context.Context) error { return nil }
