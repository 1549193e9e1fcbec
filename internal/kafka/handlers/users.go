package handlers

import (
	"context"
	"encoding/json"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/kafka/registry"
)

func init() {
	Register("user-events", "USER_UPDATED", handleUserUpdated)
	Register("user-events", "USER_DELETED", handleUserDeleted)
}

// userEnv is the envelope the user service publishes on user-events.
type userEnv struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   struct {
		Email     string `json:"email"`
		FullName  string `json:"fullName"`
		ActorID   string `json:"actorId"`
		ActorName string `json:"actorName"`
		ActorRole string `json:"actorRole"`
	} `json:"payload"`
}

func parseUserEnv(data []byte) (*userEnv, bool) {
	var env userEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Payload.Email == "" {
		return nil, false
	}
	return &env, true
}

func handleUserUpdated(data []byte) registry.Action {
	env, ok := parseUserEnv(data)
	if !ok {
		return nil
	}
	return func(ctx context.Context, svc *application.Service) error {
		return svc.NotifyUserUpdated(ctx, application.UserUpdatedEvent{
			ActorID:   env.Payload.ActorID,
			ActorName: env.Payload.ActorName,
			ActorRole: env.Payload.ActorRole,
			Email:     env.Payload.Email,
			FullName:  env.Payload.FullName,
		})
	}
}

func handleUserDeleted(data []byte) registry.Action {
	env, ok := parseUserEnv(data)
	if !ok {
		return nil
	}
	return func(ctx context.Context, svc *application.Service) error {
		return svc.NotifyUserDeleted(ctx, application.UserDeletedEvent{
			ActorID:   env.Payload.ActorID,
			ActorName: env.Payload.ActorName,
			ActorRole: env.Payload.ActorRole,
			Email:     env.Payload.Email,
			FullName:  env.Payload.FullName,
		})
	}
}
