package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of business events this service emits.
type NotificationType string

const (
	TypeNewTask      NotificationType = "new_task"
	TypeStatusChange NotificationType = "status_change"
	TypeTaskAssigned NotificationType = "task_assigned"
	TypeUserUpdated  NotificationType = "user_updated"
	TypeUserDeleted  NotificationType = "user_deleted"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeNewTask, TypeStatusChange, TypeTaskAssigned, TypeUserUpdated, TypeUserDeleted:
		return true
	}
	return false
}

// Role tags used for broadcast addressing. Only the admin role receives
// role-broadcast notifications today; technicians and officers are always
// addressed directly.
const (
	RoleAdmin      = "admin"
	RoleOfficer    = "officer"
	RoleTechnician = "technician"
)

// NotificationRecord is the persisted notification row. RecipientID and
// ForRole are independently optional, but at least one must be set —
// a record with neither is unaddressable and rejected at creation.
type NotificationRecord struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID string           `json:"recipient_id,omitempty"`
	ForRole     string           `json:"for_role,omitempty"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	TaskID      string           `json:"task_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// VisibleTo reports whether the record may be admitted into the session view
// of the given user: addressed to the user directly, or broadcast to the
// user's role.
func (n *NotificationRecord) VisibleTo(userID, role string) bool {
	if n.RecipientID != "" && n.RecipientID == userID {
		return true
	}
	return n.ForRole != "" && n.ForRole == role
}

// CreateInput carries the fields the caller controls on insert. ID and
// CreatedAt are assigned by the store.
type CreateInput struct {
	RecipientID string
	ForRole     string
	Title       string
	Message     string
	Type        NotificationType
	TaskID      string
}

// Addressable reports whether the input carries at least one addressing field.
func (in CreateInput) Addressable() bool {
	return in.RecipientID != "" || in.ForRole != ""
}

// QueryFilter holds the parameters of a feed read.
type QueryFilter struct {
	RecipientID string
	Role        string
	Limit       int
	Offset      int
}

// Target is one addressing pair produced by recipient resolution. Each target
// becomes exactly one persisted record. The two fields are not mutually
// exclusive: most events address the acting user directly and broadcast to
// the admin role in the same record.
type Target struct {
	RecipientID string
	ForRole     string
}
