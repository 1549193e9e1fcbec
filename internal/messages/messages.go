// Package messages renders the per-type (title, body) pairs stored in the
// in-app feed. The external webhook channel renders its own, more verbose
// encoding of the same events; both describe the same payload.
package messages

import "fmt"

// ─── Repair task builders ────────────────────────────────────────────────────

func NewTask(device, issue string) (string, string) {
	return NewTaskTitle, fmt.Sprintf(NewTaskBody, device, issue)
}

func StatusChange(device, issue, status, actorName string) (string, string) {
	return StatusChangeTitle, fmt.Sprintf(StatusChangeBody, device, issue, StatusLabel(status), actorName)
}

func TaskAssigned(device, issue, assignerName string) (string, string) {
	return TaskAssignedTitle, fmt.Sprintf(TaskAssignedBody, device, issue, assignerName)
}

// ─── User builders ───────────────────────────────────────────────────────────

func UserUpdated(email, fullName, actorName string) (string, string) {
	return UserUpdatedTitle, fmt.Sprintf(UserUpdatedBody, email, fullName, actorName)
}

func UserDeleted(email, fullName, actorName string) (string, string) {
	return UserDeletedTitle, fmt.Sprintf(UserDeletedBody, email, fullName, actorName)
}

// StatusLabel maps a task status code to its human label. Statuses other than
// "completed" all mean the device could not be repaired.
func StatusLabel(status string) string {
	if status == "completed" {
		return StatusCompletedLabel
	}
	return StatusUnrepairableLabel
}
