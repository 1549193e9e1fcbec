package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/domain"
	"github.com/fixtrack/notification/internal/messages"
)

// Publisher is the interface for announcing freshly inserted records to
// connected sessions. Implementation lives in internal/realtime.
type Publisher interface {
	Publish(n *domain.NotificationRecord)
}

// Dispatcher forwards a rendered event to the external webhook channel.
// Implementations absorb every failure: Dispatch never reports back and is
// always called off the persistence path.
type Dispatcher interface {
	Dispatch(ev ExternalEvent)
}

// Service is the single entry point business producers use to emit events.
// It composes recipient resolution, persistence, realtime publication, and
// the fire-and-forget external dispatch.
type Service struct {
	store    domain.Store
	resolver *Resolver
	broker   Publisher
	external Dispatcher
}

// NewService creates the notification Service facade.
func NewService(store domain.Store, resolver *Resolver, broker Publisher, external Dispatcher) *Service {
	return &Service{store: store, resolver: resolver, broker: broker, external: external}
}

// NotifyNewTask records a new repair task for the admin feed and announces it
// on the external channel.
func (s *Service) NotifyNewTask(ctx context.Context, ev NewTaskEvent) error {
	targets, err := s.resolver.Resolve(domain.TypeNewTask, ev.CreatorID, "")
	if err != nil {
		return err
	}
	title, body := messages.NewTask(ev.Device, ev.Issue)
	return s.emit(ctx, domain.TypeNewTask, ev.TaskID, title, body, targets, ExternalEvent{
		Type:   domain.TypeNewTask,
		Device: ev.Device,
		Issue:  ev.Issue,
		At:     time.Now(),
	})
}

// NotifyStatusChange records a terminal status transition of a repair task.
func (s *Service) NotifyStatusChange(ctx context.Context, ev StatusChangeEvent) error {
	targets, err := s.resolver.Resolve(domain.TypeStatusChange, ev.ChangerID, "")
	if err != nil {
		return err
	}
	title, body := messages.StatusChange(ev.Device, ev.Issue, ev.NewStatus, ev.ChangerName)
	return s.emit(ctx, domain.TypeStatusChange, ev.TaskID, title, body, targets, ExternalEvent{
		Type:      domain.TypeStatusChange,
		Device:    ev.Device,
		Issue:     ev.Issue,
		NewStatus: ev.NewStatus,
		ActorName: ev.ChangerName,
		ActorRole: ev.ChangerRole,
		At:        time.Now(),
	})
}

// NotifyTaskAssigned records an assignment addressed directly to the
// technician taking the task.
func (s *Service) NotifyTaskAssigned(ctx context.Context, ev TaskAssignedEvent) error {
	targets, err := s.resolver.Resolve(domain.TypeTaskAssigned, "", ev.TechnicianID)
	if err != nil {
		return err
	}
	title, body := messages.TaskAssigned(ev.Device, ev.Issue, ev.AssignerName)
	return s.emit(ctx, domain.TypeTaskAssigned, ev.TaskID, title, body, targets, ExternalEvent{
		Type:         domain.TypeTaskAssigned,
		Device:       ev.Device,
		Issue:        ev.Issue,
		ActorName:    ev.AssignerName,
		ActorRole:    ev.AssignerRole,
		AssigneeName: ev.TechnicianName,
		AssigneeRole: ev.TechnicianRole,
		At:           time.Now(),
	})
}

// NotifyUserUpdated records a user profile update for the admin feed.
func (s *Service) NotifyUserUpdated(ctx context.Context, ev UserUpdatedEvent) error {
	targets, err := s.resolver.Resolve(domain.TypeUserUpdated, ev.ActorID, "")
	if err != nil {
		return err
	}
	title, body := messages.UserUpdated(ev.Email, ev.FullName, ev.ActorName)
	return s.emit(ctx, domain.TypeUserUpdated, "", title, body, targets, ExternalEvent{
		Type:      domain.TypeUserUpdated,
		ActorName: ev.ActorName,
		ActorRole: ev.ActorRole,
		UserEmail: ev.Email,
		UserName:  ev.FullName,
		At:        time.Now(),
	})
}

// NotifyUserDeleted records a user profile removal for the admin feed.
func (s *Service) NotifyUserDeleted(ctx context.Context, ev UserDeletedEvent) error {
	targets, err := s.resolver.Resolve(domain.TypeUserDeleted, ev.ActorID, "")
	if err != nil {
		return err
	}
	title, body := messages.UserDeleted(ev.Email, ev.FullName, ev.ActorName)
	return s.emit(ctx, domain.TypeUserDeleted, "", title, body, targets, ExternalEvent{
		Type:      domain.TypeUserDeleted,
		ActorName: ev.ActorName,
		ActorRole: ev.ActorRole,
		UserEmail: ev.Email,
		UserName:  ev.FullName,
		At:        time.Now(),
	})
}

// CreateDirect persists a pre-rendered notification, bypassing resolution.
// Used by the notification-commands topic. No external dispatch: direct
// commands carry no structured fields to render an embed from.
func (s *Service) CreateDirect(ctx context.Context, input domain.CreateInput) (*domain.NotificationRecord, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("create direct notification: unknown type %q", input.Type)
	}
	if !input.Addressable() {
		return nil, fmt.Errorf("create direct notification: %w", domain.ErrUnaddressable)
	}

	n, err := s.store.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create direct notification: %w", err)
	}
	s.broker.Publish(n)
	return n, nil
}

// emit persists one record per target, publishes each inserted record to
// connected sessions, and finally triggers the external dispatch. A store
// failure halts delivery of this event and skips the dispatch; the external
// channel never sees events the feed did not accept.
func (s *Service) emit(ctx context.Context, typ domain.NotificationType, taskID, title, body string, targets []domain.Target, ext ExternalEvent) error {
	for _, t := range targets {
		n, err := s.store.Create(ctx, domain.CreateInput{
			RecipientID: t.RecipientID,
			ForRole:     t.ForRole,
			Title:       title,
			Message:     body,
			Type:        typ,
			TaskID:      taskID,
		})
		if err != nil {
			return fmt.Errorf("persist %s notification: %w", typ, err)
		}

		s.broker.Publish(n)

		log.Info().
			Str("id", n.ID.String()).
			Str("type", string(typ)).
			Str("recipient", t.RecipientID).
			Str("role", t.ForRole).
			Msg("notification created and published")
	}

	// Detached from the request: dispatch runs to its own terminal outcome
	// even if the triggering session is gone.
	go s.external.Dispatch(ext)

	return nil
}

// List returns the deduplicated, newest-first feed page for a user.
func (s *Service) List(ctx context.Context, filter domain.QueryFilter) ([]*domain.NotificationRecord, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return domain.Dedupe(records), nil
}

// CountUnread returns the unread badge count for a user.
func (s *Service) CountUnread(ctx context.Context, recipientID, role string) (int64, error) {
	return s.store.CountUnread(ctx, recipientID, role)
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	return s.store.MarkRead(ctx, id)
}

// MarkManyRead marks a batch of notifications as read, atomically.
func (s *Service) MarkManyRead(ctx context.Context, idStrs []string) error {
	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, raw := range idStrs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid notification id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.store.MarkManyRead(ctx, ids)
}

// PurgeTTL deletes old notifications. Called by a background scheduler.
func (s *Service) PurgeTTL(ctx context.Context, days int) {
	count, err := s.store.PurgeOlderThan(ctx, days)
	if err != nil {
		log.Error().Err(err).Msg("notification retention purge failed")
		return
	}
	log.Info().Int64("deleted", count).Int("older_than_days", days).Msg("notification retention purge completed")
}
