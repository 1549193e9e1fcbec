package registry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/kafka/registry"
)

func makeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func noopAction(context.Context, *application.Service) error { return nil }

func TestRegisterAndDispatch(t *testing.T) {
	called := false
	registry.Register("test-topic", "TEST_EVENT", func(data []byte) registry.Action {
		called = true
		return noopAction
	})

	action := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "TEST_EVENT",
	}))

	if !called {
		t.Fatal("handler was not called")
	}
	if action == nil {
		t.Fatal("expected a non-nil action")
	}
}

func TestDispatch_UnknownEvent_ReturnsNil(t *testing.T) {
	action := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "UNKNOWN_EVENT_XYZ",
	}))
	if action != nil {
		t.Fatal("expected nil for unknown event")
	}
}

func TestDispatch_InvalidJSON_ReturnsNil(t *testing.T) {
	action := registry.Dispatch("test-topic", []byte("not json"))
	if action != nil {
		t.Fatal("expected nil for invalid JSON")
	}
}

func TestDispatchDirect(t *testing.T) {
	registry.Register("direct-topic", "", func(data []byte) registry.Action {
		return noopAction
	})

	action := registry.DispatchDirect("direct-topic", []byte(`{}`))
	if action == nil {
		t.Fatal("DispatchDirect failed")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	registry.Register("dupe-topic", "DUPE_EVENT", func([]byte) registry.Action { return nil })
	registry.Register("dupe-topic", "DUPE_EVENT", func([]byte) registry.Action { return nil })
}
