package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/domain"
	"github.com/fixtrack/notification/internal/realtime"
)

// Handler holds all HTTP handler methods.
type Handler struct {
	svc       *application.Service
	store     domain.Store
	broker    *realtime.Broker
	feedLimit int
}

// NewHandler creates a new Handler. feedLimit caps the bulk fetch a session
// performs when its SSE stream opens.
func NewHandler(svc *application.Service, store domain.Store, broker *realtime.Broker, feedLimit int) *Handler {
	return &Handler{svc: svc, store: store, broker: broker, feedLimit: feedLimit}
}

// --- REST handlers ---

// ListNotifications GET /notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	userID, role := mustClaims(c)

	filter := domain.QueryFilter{
		RecipientID: userID,
		Role:        role,
		Limit:       parseIntQuery(c, "limit", h.feedLimit),
		Offset:      parseIntQuery(c, "offset", 0),
	}

	notifications, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":   notifications,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetUnreadCount GET /notifications/unread-count
func (h *Handler) GetUnreadCount(c echo.Context) error {
	userID, role := mustClaims(c)

	count, err := h.svc.CountUnread(c.Request().Context(), userID, role)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

// MarkRead PATCH /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.svc.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkManyRead POST /notifications/read-all
// Body: {"ids": ["..."]} — applied atomically, all or nothing.
func (h *Handler) MarkManyRead(c echo.Context) error {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.MarkManyRead(c.Request().Context(), body.IDs); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"marked": len(body.IDs)})
}

// --- SSE handler ---

// ssePayload is the frame body for snapshot and notification events.
type ssePayload struct {
	Notifications []domain.NotificationRecord `json:"notifications,omitempty"`
	Notification  *domain.NotificationRecord  `json:"notification,omitempty"`
	UnreadCount   int                         `json:"unread_count"`
}

// Stream GET /notifications/stream — SSE endpoint.
// Each connection runs its own reconciler: bulk fetch merged with the broker
// stream, deduplicated, access-checked. The view dies with the connection.
func (h *Handler) Stream(c echo.Context) error {
	userID, role := mustClaims(c)

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable proxy buffering

	rec := realtime.NewReconciler(h.store, h.broker, userID, role, h.feedLimit)

	ctx := c.Request().Context()
	go rec.Run(ctx)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	log.Info().Str("user", userID).Str("role", role).Msg("notification stream opened")

	for {
		select {
		case u := <-rec.Updates():
			if err := h.writeUpdate(w, rec, u); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("user", userID).Msg("notification stream closed by client")
			return nil
		}
	}
}

func (h *Handler) writeUpdate(w *echo.Response, rec *realtime.Reconciler, u realtime.Update) error {
	var event string
	var payload ssePayload

	switch {
	case u.Resync:
		view, unread := rec.Snapshot()
		event = "snapshot"
		payload = ssePayload{Notifications: view, UnreadCount: unread}
	case u.Record != nil:
		event = "notification"
		payload = ssePayload{Notification: u.Record, UnreadCount: u.Unread}
	default:
		event = "unread"
		payload = ssePayload{UnreadCount: u.Unread}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.broker.SubscriberCount(),
	})
}

// --- Helpers ---

func mustClaims(c echo.Context) (userID, role string) {
	userID = c.Get("userID").(string)
	role = c.Get("role").(string)
	return
}

func parseIntQuery(c echo.Context, key string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnaddressable):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notification store unavailable")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
