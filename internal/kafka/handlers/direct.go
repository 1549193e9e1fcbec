package handlers

import (
	"context"
	"encoding/json"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/domain"
	"github.com/fixtrack/notification/internal/kafka/registry"
)

func init() {
	RegisterDirect("notification-commands", handleDirectCommand)
}

// handleDirectCommand accepts a pre-rendered notification addressed to a
// specific user and/or a role. Used by internal tooling to inject feed
// entries without going through a business event.
func handleDirectCommand(data []byte) registry.Action {
	var cmd struct {
		RecipientID string `json:"recipientId"`
		ForRole     string `json:"forRole"`
		Type        string `json:"type"`
		Title       string `json:"title"`
		Message     string `json:"message"`
		TaskID      string `json:"taskId"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil
	}
	if cmd.Title == "" || cmd.Message == "" {
		return nil
	}

	return func(ctx context.Context, svc *application.Service) error {
		_, err := svc.CreateDirect(ctx, domain.CreateInput{
			RecipientID: cmd.RecipientID,
			ForRole:     cmd.ForRole,
			Title:       cmd.Title,
			Message:     cmd.Message,
			Type:        domain.NotificationType(cmd.Type),
			TaskID:      cmd.TaskID,
		})
		return err
	}
}
