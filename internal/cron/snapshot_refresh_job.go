package cron

import (
	"context"
	"fmt"
)

type snapshotWarmer interface {
	WarmAll(ctx context.Context) error
}

// SnapshotRefreshJob re-warms every list-view snapshot so reads stay fast
// even when the change feed missed an invalidation.
type SnapshotRefreshJob struct {
	snapshots snapshotWarmer
}

// NewSnapshotRefreshJob builds the snapshot refresh job.
func NewSnapshotRefreshJob(snapshots snapshotWarmer) (*SnapshotRefreshJob, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot service required")
	}
	return &SnapshotRefreshJob{snapshots: snapshots}, nil
}

// Name implements Job.
func (j *SnapshotRefreshJob) Name() string {
	return "snapshot_refresh"
}

// Run implements Job.
func (j *SnapshotRefreshJob) Run(ctx context.Context) error {
	return j.snapshots.WarmAll(ctx)
}
