package application

import (
	"fmt"

	"github.com/fixtrack/notification/internal/domain"
)

// Resolver maps an event type plus its acting parties to the set of
// addressing pairs that will be persisted. Pure: no side effects, no I/O.
//
// Today's policy, mirroring how the shop operates: task and user events are
// broadcast to the admin role with the acting user attached as the direct
// recipient, while assignments go straight to the assigned technician.
// Additional role-broadcast classes (e.g. a technician-wide broadcast) are an
// explicit extension, not an assumed requirement.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve produces the targets for an event. actorID is the user who performed
// the action; assigneeID is only meaningful for task_assigned events.
// Fails with ErrUnaddressable when no target carries an addressing field.
func (r *Resolver) Resolve(typ domain.NotificationType, actorID, assigneeID string) ([]domain.Target, error) {
	var targets []domain.Target

	switch typ {
	case domain.TypeNewTask, domain.TypeStatusChange, domain.TypeUserUpdated, domain.TypeUserDeleted:
		targets = []domain.Target{{RecipientID: actorID, ForRole: domain.RoleAdmin}}

	case domain.TypeTaskAssigned:
		targets = []domain.Target{{RecipientID: assigneeID}}

	default:
		return nil, fmt.Errorf("resolve recipients: unknown notification type %q", typ)
	}

	for _, t := range targets {
		if t.RecipientID == "" && t.ForRole == "" {
			return nil, fmt.Errorf("resolve recipients for %s: %w", typ, domain.ErrUnaddressable)
		}
	}
	return targets, nil
}
