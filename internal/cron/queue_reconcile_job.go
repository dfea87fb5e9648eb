package cron

import (
	"context"
	"fmt"

	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type queueReconciler interface {
	Reconcile(ctx context.Context) (*queue.ReconcileReport, error)
}

// QueueReconcileJob repairs the Redis staging queue against the durable
// po_status column on a schedule.
type QueueReconcileJob struct {
	queue queueReconciler
	logg  *logger.Logger
}

// NewQueueReconcileJob builds the reconciliation job.
func NewQueueReconcileJob(reconciler queueReconciler, logg *logger.Logger) (*QueueReconcileJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("queue reconciler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &QueueReconcileJob{queue: reconciler, logg: logg}, nil
}

// Name implements Job.
func (j *QueueReconcileJob) Name() string {
	return "queue_reconcile"
}

// Run implements Job.
func (j *QueueReconcileJob) Run(ctx context.Context) error {
	report, err := j.queue.Reconcile(ctx)
	if err != nil {
		return err
	}
	if report.Dropped > 0 || report.Restored > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"dropped":  report.Dropped,
			"restored": report.Restored,
		}), "staging queue repaired")
	}
	return nil
}
