// Package pipeline defines the stage contract shared by the medallion
// builders and the sequential runner the orchestrator uses.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/metrics"
)

// Stage is one invocable unit of the pipeline. Stages share whatever engine
// connection the caller injected; the caller owns its lifecycle.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes stages strictly in order, stopping at the first failure.
// Table builds within a stage are serial as well, so logged row counts come
// out in a deterministic order.
type Runner struct {
	logger *zap.Logger
	stages []Stage
}

// NewRunner creates a runner over the given stages. Order matters: later
// stages read tables the earlier ones created.
func NewRunner(logger *zap.Logger, stages ...Stage) *Runner {
	return &Runner{logger: logger, stages: stages}
}

// Run executes every stage in sequence. The first stage error aborts the
// remaining sequence and is returned to the caller.
func (r *Runner) Run(ctx context.Context) error {
	for _, s := range r.stages {
		start := time.Now()
		r.logger.Info("starting stage", zap.String("stage", s.Name()))

		if err := s.Run(ctx); err != nil {
			metrics.StageErrors.WithLabelValues(s.Name()).Inc()
			r.logger.Error("stage failed",
				zap.String("stage", s.Name()),
				zap.Error(err))
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}

		d := time.Since(start)
		metrics.StageDuration.WithLabelValues(s.Name()).Observe(d.Seconds())
		r.logger.Info("stage complete",
			zap.String("stage", s.Name()),
			zap.Duration("duration", d))
	}
	return nil
}
