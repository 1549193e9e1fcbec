// Package discord implements the external notification channel as a Discord
// webhook. Delivery is best-effort and strictly off the in-app path: every
// failure is logged and absorbed, never surfaced to the producer.
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/domain"
	"github.com/fixtrack/notification/internal/messages"
)

// Embed colors, one per outcome.
const (
	colorNewTask      = 0x3498db // blue
	colorCompleted    = 0x2ecc71 // green
	colorUnrepairable = 0xe74c3c // red
	colorAssigned     = 0xf1c40f // yellow
	colorUserUpdated  = 0xe67e22 // orange
	colorUserDeleted  = 0x992d22 // dark red
)

// localTimeLayout is the human-readable timestamp shown in each embed.
const localTimeLayout = "02/01/2006 15:04:05"

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields,omitempty"`
	Timestamp string       `json:"timestamp"`
}

type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

// Webhook posts rendered events to a single configured Discord webhook URL.
// An empty URL disables the channel; Dispatch then logs and returns.
type Webhook struct {
	url    string
	client *http.Client
}

// New creates a Webhook dispatcher.
func New(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ application.Dispatcher = (*Webhook)(nil)

// Dispatch renders ev into a per-type embed and posts it. Fire-and-forget:
// the call runs to its single terminal outcome regardless of the caller's
// lifetime and never reports failure back.
func (w *Webhook) Dispatch(ev application.ExternalEvent) {
	if w.url == "" {
		log.Warn().Str("type", string(ev.Type)).Msg("discord webhook not configured, skipping dispatch")
		return
	}

	e, ok := w.render(ev)
	if !ok {
		log.Warn().Str("type", string(ev.Type)).Msg("no discord rendering for event type, skipping")
		return
	}

	if err := w.post(e); err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("discord dispatch failed")
		return
	}
	log.Debug().Str("type", string(ev.Type)).Msg("discord dispatch delivered")
}

func (w *Webhook) render(ev application.ExternalEvent) (embed, bool) {
	e := embed{Timestamp: ev.At.UTC().Format(time.RFC3339)}
	timeField := embedField{Name: "🕒 Time", Value: ev.At.Format(localTimeLayout)}

	switch ev.Type {
	case domain.TypeNewTask:
		e.Title = "🔔 New repair task"
		e.Color = colorNewTask
		e.Fields = []embedField{
			{Name: "📱 Device", Value: ev.Device, Inline: true},
			{Name: "🔧 Issue", Value: ev.Issue, Inline: true},
			timeField,
		}

	case domain.TypeStatusChange:
		status := messages.StatusLabel(ev.NewStatus)
		if ev.NewStatus == "completed" {
			e.Title = "✅ Task status changed"
			e.Color = colorCompleted
		} else {
			e.Title = "❌ Task status changed"
			e.Color = colorUnrepairable
		}
		e.Fields = []embedField{
			{Name: "📱 Device", Value: ev.Device, Inline: true},
			{Name: "🔧 Issue", Value: ev.Issue, Inline: true},
			{Name: "📝 New status", Value: status},
			{Name: "👤 Performed by", Value: actor(ev.ActorName, ev.ActorRole)},
			timeField,
		}

	case domain.TypeTaskAssigned:
		e.Title = "📋 New task assignment"
		e.Color = colorAssigned
		e.Fields = []embedField{
			{Name: "📱 Device", Value: ev.Device, Inline: true},
			{Name: "🔧 Issue", Value: ev.Issue, Inline: true},
			{Name: "👤 Assigned by", Value: actor(ev.ActorName, ev.ActorRole)},
			{Name: "🔨 Assignee", Value: actor(ev.AssigneeName, ev.AssigneeRole)},
			timeField,
		}

	case domain.TypeUserUpdated:
		e.Title = "👤 User profile updated"
		e.Color = colorUserUpdated
		e.Fields = []embedField{
			{Name: "📧 Email", Value: ev.UserEmail, Inline: true},
			{Name: "🪪 Name", Value: ev.UserName, Inline: true},
			{Name: "👤 Performed by", Value: actor(ev.ActorName, ev.ActorRole)},
			timeField,
		}

	case domain.TypeUserDeleted:
		e.Title = "🗑️ User removed"
		e.Color = colorUserDeleted
		e.Fields = []embedField{
			{Name: "📧 Email", Value: ev.UserEmail, Inline: true},
			{Name: "🪪 Name", Value: ev.UserName, Inline: true},
			{Name: "👤 Performed by", Value: actor(ev.ActorName, ev.ActorRole)},
			timeField,
		}

	default:
		return embed{}, false
	}
	return e, true
}

// post delivers one embed. A transport-level error gets a single bounded
// retry; a non-success response does not, since the webhook already saw the
// request.
func (w *Webhook) post(e embed) error {
	payload, err := json.Marshal(webhookBody{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		resp, err = w.client.Post(w.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func actor(name, role string) string {
	if name == "" {
		name = "unknown"
	}
	if role == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, role)
}
