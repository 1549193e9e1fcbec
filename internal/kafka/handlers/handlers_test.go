package handlers_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixtrack/notification/internal/kafka/registry"

	_ "github.com/fixtrack/notification/internal/kafka/handlers"
)

func envelope(eventType string, payload map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{
		"eventType": eventType,
		"eventId":   "ev-1",
		"payload":   payload,
	})
	return b
}

func TestTaskCreatedProducesAction(t *testing.T) {
	action := registry.Dispatch("task-events", envelope("TASK_CREATED", map[string]any{
		"taskId":     "task-7",
		"deviceName": "Printer-7",
		"issue":      "Paper jam",
		"actorId":    "officer-1",
	}))
	assert.NotNil(t, action)
}

func TestTaskEventWithoutTaskIDSkipped(t *testing.T) {
	action := registry.Dispatch("task-events", envelope("TASK_CREATED", map[string]any{
		"deviceName": "Printer-7",
	}))
	assert.Nil(t, action)
}

func TestTaskAssignedRequiresTechnician(t *testing.T) {
	payload := map[string]any{
		"taskId":     "task-9",
		"deviceName": "Laptop-3",
		"issue":      "Broken hinge",
	}
	assert.Nil(t, registry.Dispatch("task-events", envelope("TASK_ASSIGNED", payload)))

	payload["technicianId"] = "tech-2"
	assert.NotNil(t, registry.Dispatch("task-events", envelope("TASK_ASSIGNED", payload)))
}

func TestUserEventsProduceActions(t *testing.T) {
	for _, eventType := range []string{"USER_UPDATED", "USER_DELETED"} {
		action := registry.Dispatch("user-events", envelope(eventType, map[string]any{
			"email":     "tech@shop.local",
			"fullName":  "Somchai",
			"actorName": "Admin A",
			"actorRole": "admin",
		}))
		assert.NotNil(t, action, eventType)
	}
}

func TestDirectCommandRequiresContent(t *testing.T) {
	valid, _ := json.Marshal(map[string]any{
		"forRole": "admin",
		"type":    "new_task",
		"title":   "Heads up",
		"message": "Manual feed entry",
	})
	assert.NotNil(t, registry.DispatchDirect("notification-commands", valid))

	missingTitle, _ := json.Marshal(map[string]any{
		"forRole": "admin",
		"message": "Manual feed entry",
	})
	assert.Nil(t, registry.DispatchDirect("notification-commands", missingTitle))
}
