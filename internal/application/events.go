package application

import (
	"time"

	"github.com/fixtrack/notification/internal/domain"
)

// Business payloads accepted by the facade. Each carries the minimal fields
// needed to render both the in-app message and the external webhook embed.

// NewTaskEvent announces a freshly created repair task.
type NewTaskEvent struct {
	CreatorID string
	TaskID    string
	Device    string
	Issue     string
}

// StatusChangeEvent announces a repair task reaching a terminal status.
type StatusChangeEvent struct {
	ChangerID   string
	ChangerName string
	ChangerRole string
	TaskID      string
	Device      string
	Issue       string
	NewStatus   string
}

// TaskAssignedEvent announces a technician being put on a task.
type TaskAssignedEvent struct {
	TechnicianID   string
	TechnicianName string
	TechnicianRole string
	AssignerName   string
	AssignerRole   string
	TaskID         string
	Device         string
	Issue          string
}

// UserUpdatedEvent announces a change to a user profile.
type UserUpdatedEvent struct {
	ActorID   string
	ActorName string
	ActorRole string
	Email     string
	FullName  string
}

// UserDeletedEvent announces a user profile removal.
type UserDeletedEvent struct {
	ActorID   string
	ActorName string
	ActorRole string
	Email     string
	FullName  string
}

// ExternalEvent is the rendered payload handed to the external Dispatcher.
// Only the fields relevant to the event type are populated.
type ExternalEvent struct {
	Type         domain.NotificationType
	Device       string
	Issue        string
	NewStatus    string
	ActorName    string
	ActorRole    string
	AssigneeName string
	AssigneeRole string
	UserEmail    string
	UserName     string
	At           time.Time
}
