package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/pkg/jobs"
)

const jobTypeInvalidateAnalytics = "invalidate_analytics"

// CacheInvalidationJob names the analytics scope to drop.
type CacheInvalidationJob struct {
	TeacherID string `json:"teacher_id"`
}

// Invalidator schedules analytics cache invalidation. Write paths use it
// fire-and-forget so request latency never waits on Redis scans.
type Invalidator interface {
	InvalidateAnalytics(teacherID string)
}

// AnalyticsInvalidator runs invalidation jobs on a background worker
// queue.
type AnalyticsInvalidator struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAnalyticsInvalidator wires a worker queue to the analytics cache.
func NewAnalyticsInvalidator(analytics *AnalyticsService, logger *zap.Logger, cfg jobs.QueueConfig) *AnalyticsInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger

	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(CacheInvalidationJob)
		if !ok {
			return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
		}
		return analytics.InvalidateScope(ctx, payload.TeacherID)
	}

	return &AnalyticsInvalidator{
		queue:  jobs.NewQueue("analytics-invalidation", handler, cfg),
		logger: logger,
	}
}

// Start launches the queue workers.
func (i *AnalyticsInvalidator) Start(ctx context.Context) {
	i.queue.Start(ctx)
}

// Stop drains the queue workers.
func (i *AnalyticsInvalidator) Stop() {
	i.queue.Stop()
}

// InvalidateAnalytics enqueues an invalidation for the teacher's scope.
func (i *AnalyticsInvalidator) InvalidateAnalytics(teacherID string) {
	err := i.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeInvalidateAnalytics,
		Payload: CacheInvalidationJob{TeacherID: teacherID},
	})
	if err != nil {
		i.logger.Warn("enqueue analytics invalidation", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
