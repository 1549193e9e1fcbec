package discord

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/domain"
)

func TestDispatch_PostsEmbed(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local)
	New(srv.URL).Dispatch(application.ExternalEvent{
		Type:   domain.TypeNewTask,
		Device: "Printer-7",
		Issue:  "Paper jam",
		At:     at,
	})

	var payload struct {
		Embeds []struct {
			Title  string `json:"title"`
			Color  int    `json:"color"`
			Fields []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
			Timestamp string `json:"timestamp"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Embeds, 1)

	e := payload.Embeds[0]
	assert.Contains(t, e.Title, "New repair task")
	assert.Equal(t, colorNewTask, e.Color)
	assert.NotEmpty(t, e.Timestamp)

	values := map[string]string{}
	for _, f := range e.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "Printer-7", values["📱 Device"])
	assert.Equal(t, "Paper jam", values["🔧 Issue"])
	assert.Equal(t, "09/03/2024 14:30:05", values["🕒 Time"], "day/month/year hour:minute:second")
}

func TestDispatch_StatusChangeColorsByOutcome(t *testing.T) {
	var colors []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Embeds []struct {
				Color int `json:"color"`
			} `json:"embeds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		colors = append(colors, payload.Embeds[0].Color)
	}))
	defer srv.Close()

	w := New(srv.URL)
	for _, status := range []string{"completed", "unrepairable"} {
		w.Dispatch(application.ExternalEvent{
			Type:      domain.TypeStatusChange,
			Device:    "Printer-7",
			Issue:     "Paper jam",
			NewStatus: status,
			ActorName: "Admin A",
			ActorRole: domain.RoleAdmin,
			At:        time.Now(),
		})
	}

	require.Len(t, colors, 2)
	assert.Equal(t, colorCompleted, colors[0])
	assert.Equal(t, colorUnrepairable, colors[1])
}

func TestDispatch_UnreachableEndpointIsAbsorbed(t *testing.T) {
	w := New("http://127.0.0.1:1")
	// Must neither panic nor block beyond the client timeout.
	w.Dispatch(application.ExternalEvent{
		Type:   domain.TypeTaskAssigned,
		Device: "Laptop-3",
		Issue:  "Broken hinge",
		At:     time.Now(),
	})
}

func TestDispatch_NotConfiguredSkips(t *testing.T) {
	New("").Dispatch(application.ExternalEvent{Type: domain.TypeNewTask, At: time.Now()})
}

func TestDispatch_NonSuccessResponseNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	New(srv.URL).Dispatch(application.ExternalEvent{
		Type:   domain.TypeNewTask,
		Device: "Printer-7",
		Issue:  "Paper jam",
		At:     time.Now(),
	})

	assert.Equal(t, int32(1), hits.Load(), "a delivered-but-rejected request is not retried")
}

func TestDispatch_UnknownTypeSkipped(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	New(srv.URL).Dispatch(application.ExternalEvent{Type: "bogus", At: time.Now()})
	assert.Zero(t, hits.Load())
}
