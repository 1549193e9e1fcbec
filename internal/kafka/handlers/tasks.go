package handlers

import (
	"context"
	"encoding/json"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/kafka/registry"
)

func init() {
	Register("task-events", "TASK_CREATED", handleTaskCreated)
	Register("task-events", "TASK_ASSIGNED", handleTaskAssigned)
	Register("task-events", "TASK_STATUS_CHANGED", handleTaskStatusChanged)
}

// taskEnv is the envelope the repair-task service publishes on task-events.
type taskEnv struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   struct {
		TaskID         string `json:"taskId"`
		DeviceName     string `json:"deviceName"`
		Issue          string `json:"issue"`
		NewStatus      string `json:"newStatus"`
		ActorID        string `json:"actorId"`
		ActorName      string `json:"actorName"`
		ActorRole      string `json:"actorRole"`
		TechnicianID   string `json:"technicianId"`
		TechnicianName string `json:"technicianName"`
		TechnicianRole string `json:"technicianRole"`
	} `json:"payload"`
}

func parseTaskEnv(data []byte) (*taskEnv, bool) {
	var env taskEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Payload.TaskID == "" {
		return nil, false
	}
	return &env, true
}

func handleTaskCreated(data []byte) registry.Action {
	env, ok := parseTaskEnv(data)
	if !ok {
		return nil
	}
	return func(ctx context.Context, svc *application.Service) error {
		return svc.NotifyNewTask(ctx, application.NewTaskEvent{
			CreatorID: env.Payload.ActorID,
			TaskID:    env.Payload.TaskID,
			Device:    env.Payload.DeviceName,
			Issue:     env.Payload.Issue,
		})
	}
}

func handleTaskAssigned(data []byte) registry.Action {
	env, ok := parseTaskEnv(data)
	if !ok || env.Payload.TechnicianID == "" {
		return nil
	}
	return func(ctx context.Context, svc *application.Service) error {
		return svc.NotifyTaskAssigned(ctx, application.TaskAssignedEvent{
			TechnicianID:   env.Payload.TechnicianID,
			TechnicianName: env.Payload.TechnicianName,
			TechnicianRole: env.Payload.TechnicianRole,
			AssignerName:   env.Payload.ActorName,
			AssignerRole:   env.Payload.ActorRole,
			TaskID:         env.Payload.TaskID,
			Device:         env.Payload.DeviceName,
			Issue:          env.Payload.Issue,
		})
	}
}

func handleTaskStatusChanged(data []byte) registry.Action {
	env, ok := parseTaskEnv(data)
	if !ok || env.Payload.NewStatus == "" {
		return nil
	}
	return func(ctx context.Context, svc *application.Service) error {
		return svc.NotifyStatusChange(ctx, application.StatusChangeEvent{
			ChangerID:   env.Payload.ActorID,
			ChangerName: env.Payload.ActorName,
			ChangerRole: env.Payload.ActorRole,
			TaskID:      env.Payload.TaskID,
			Device:      env.Payload.DeviceName,
			Issue:       env.Payload.Issue,
			NewStatus:   env.Payload.NewStatus,
		})
	}
}
