package messages

// ─── Repair tasks ────────────────────────────────────────────────────────────

const (
	NewTaskTitle = "New repair task"
	NewTaskBody  = "A new repair task was added: %s - %s"

	StatusChangeTitle = "Task status changed"
	StatusChangeBody  = "Repair task %s - %s was marked %s by %s"

	TaskAssignedTitle = "New task assignment"
	TaskAssignedBody  = "You were assigned to repair %s - %s by %s"
)

// ─── Users ───────────────────────────────────────────────────────────────────

const (
	UserUpdatedTitle = "User profile updated"
	UserUpdatedBody  = "Profile of %s (%s) was updated by %s"

	UserDeletedTitle = "User removed"
	UserDeletedBody  = "Profile of %s (%s) was removed by %s"
)

// ─── Status labels ───────────────────────────────────────────────────────────

const (
	StatusCompletedLabel    = "completed"
	StatusUnrepairableLabel = "unrepairable"
)
