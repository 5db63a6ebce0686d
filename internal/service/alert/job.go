package alert

import (
	"context"
	"fmt"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/queue"
)

// DispatchJob consumes queued alerts and delivers them through the manager's
// notifiers. Registered on the Redis queue when async alerting is enabled.
type DispatchJob struct {
	manager *Manager
}

func NewDispatchJob(manager *Manager) queue.Job {
	return &DispatchJob{manager: manager}
}

func (j *DispatchJob) Name() string { return "alert-dispatch" }

func (j *DispatchJob) Type() string { return MessageTypeAlert }

func (j *DispatchJob) Handle(ctx context.Context, payload interface{}) error {
	alert, err := queue.ParsePayload[models.Alert](payload)
	if err != nil {
		return fmt.Errorf("parse alert payload: %w", err)
	}
	return j.manager.Dispatch(ctx, alert)
}
