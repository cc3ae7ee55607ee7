package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solar-sync/internal/cache"
	"solar-sync/internal/common/constants"
	"solar-sync/internal/devicesync"
	"solar-sync/internal/mocks"
	"solar-sync/internal/store"
	"solar-sync/internal/utils"
	"solar-sync/internal/weather"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type apiEnv struct {
	echo     *echo.Echo
	sync     *devicesync.Service
	commands *mocks.MockCommandPublisher
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	st := store.NewMemoryStore()
	logger := mocks.NewMockLogger()
	commands := mocks.NewMockCommandPublisher()

	svc := devicesync.NewService(st, commands, mocks.NewMockCleaningArchive(), mocks.NewMockTelemetryArchive(), mocks.NewMockIDGenerator(), logger)
	envelopes := cache.NewEnvelopeCache(mocks.NewMockCacheService(), "", logger)
	ingestor := weather.NewDustIngestor(st, envelopes, time.Minute, nil, weather.NewHTTPTransport(time.Second), mocks.NewMockConfigProvider(), logger)

	e := NewEcho()
	NewAPIHandler(svc, ingestor).RegisterRoutes(e)
	return &apiEnv{echo: e, sync: svc, commands: commands}
}

func (a *apiEnv) do(t *testing.T, method, target, body string) (int, utils.StandardResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	var resp utils.StandardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON response for %s %s, got %q", method, target, rec.Body.String())
	}
	return rec.Code, resp
}

func (a *apiEnv) provision(t *testing.T) string {
	t.Helper()
	code, resp := a.do(t, http.MethodPost, "/api/v1/users/user1/devices", `{"name":"Roof A","panelRating":400}`)
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", code, resp.Message)
	}
	data := resp.Data.(map[string]interface{})
	return data["deviceId"].(string)
}

func TestHealthCheck(t *testing.T) {
	env := newAPIEnv(t)
	code, resp := env.do(t, http.MethodGet, "/api/v1/health", "")
	if code != http.StatusOK || resp.Status != constants.ResponseSuccess {
		t.Errorf("Expected healthy response, got %d %+v", code, resp)
	}
}

func TestDeviceEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	deviceID := env.provision(t)

	t.Run("List", func(t *testing.T) {
		code, resp := env.do(t, http.MethodGet, "/api/v1/users/user1/devices", "")
		if code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", code)
		}
		data := resp.Data.(map[string]interface{})
		if data["count"].(float64) != 1 {
			t.Errorf("Expected 1 device, got %v", data["count"])
		}
	})

	t.Run("Get", func(t *testing.T) {
		code, resp := env.do(t, http.MethodGet, "/api/v1/devices/"+deviceID, "")
		if code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", code)
		}
		data := resp.Data.(map[string]interface{})
		control := data["cleaningControl"].(map[string]interface{})
		if control["status"] != "idle" || control["mode"] != "manual" {
			t.Errorf("Expected idle manual device, got %v", control)
		}
	})

	t.Run("Unknown device", func(t *testing.T) {
		code, resp := env.do(t, http.MethodGet, "/api/v1/devices/missing", "")
		if code != http.StatusNotFound || resp.Status != constants.ResponseError {
			t.Errorf("Expected 404 error, got %d %+v", code, resp)
		}
	})

	t.Run("Invalid mode", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPut, "/api/v1/devices/"+deviceID+"/mode", `{"mode":"turbo"}`)
		if code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", code)
		}
	})

	t.Run("Malformed body", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPut, "/api/v1/devices/"+deviceID+"/auto-settings", `{"enabled":`)
		if code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", code)
		}
	})

	t.Run("Partial auto settings keep threshold", func(t *testing.T) {
		code, resp := env.do(t, http.MethodPut, "/api/v1/devices/"+deviceID+"/auto-settings", `{"enabled":true}`)
		if code != http.StatusOK {
			t.Fatalf("Expected 200, got %d (%s)", code, resp.Message)
		}
		device, err := env.sync.GetDevice(context.Background(), deviceID)
		if err != nil {
			t.Fatalf("GetDevice failed: %v", err)
		}
		settings := device.CleaningControl.AutoSettings
		if !settings.Enabled || settings.DustThreshold != constants.DefaultDustThreshold {
			t.Errorf("Expected enabled with default threshold, got %+v", settings)
		}

		code, _ = env.do(t, http.MethodPut, "/api/v1/devices/"+deviceID+"/auto-settings", `{"dustThreshold":0}`)
		if code != http.StatusBadRequest {
			t.Errorf("Expected 400 for zero threshold, got %d", code)
		}
	})

	t.Run("Delete by another user", func(t *testing.T) {
		code, _ := env.do(t, http.MethodDelete, "/api/v1/users/user2/devices/"+deviceID, "")
		if code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", code)
		}
	})

	t.Run("Delete by owner", func(t *testing.T) {
		code, _ := env.do(t, http.MethodDelete, "/api/v1/users/user1/devices/"+deviceID, "")
		if code != http.StatusOK {
			t.Errorf("Expected 200, got %d", code)
		}
		code, _ = env.do(t, http.MethodGet, "/api/v1/devices/"+deviceID, "")
		if code != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", code)
		}
	})
}

func TestCleaningEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	deviceID := env.provision(t)
	base := "/api/v1/devices/" + deviceID

	code, _ := env.do(t, http.MethodPost, base+"/progress", `{"progress":10}`)
	if code != http.StatusConflict {
		t.Errorf("Expected 409 for progress while idle, got %d", code)
	}

	code, resp := env.do(t, http.MethodPost, base+"/command", `{"trigger":1,"method":"wet"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Message)
	}
	if len(env.commands.Commands()) != 1 {
		t.Errorf("Expected 1 published command, got %d", len(env.commands.Commands()))
	}

	code, _ = env.do(t, http.MethodPost, base+"/command", `{"trigger":1,"method":"dry"}`)
	if code != http.StatusConflict {
		t.Errorf("Expected 409 when starting twice, got %d", code)
	}

	code, _ = env.do(t, http.MethodPost, base+"/command", `{"trigger":1,"method":"dry","pwm":300}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for pwm out of range, got %d", code)
	}

	code, _ = env.do(t, http.MethodPost, base+"/progress", `{"progress":100,"waterUsed":3}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	device, err := env.sync.GetDevice(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if device.CleaningControl.Status != "completed" || device.CleaningControl.Trigger != 0 {
		t.Errorf("Expected completed with trigger 0, got %s/%d", device.CleaningControl.Status, device.CleaningControl.Trigger)
	}

	code, _ = env.do(t, http.MethodPost, base+"/error", `{"message":"brush jammed"}`)
	if code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}

	code, resp = env.do(t, http.MethodGet, base+"/history", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Data.(map[string]interface{})["count"].(float64) != 1 {
		t.Errorf("Expected 1 cleaning log, got %v", resp.Data)
	}
}

func TestAutoCleaningAndWeatherEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	deviceID := env.provision(t)
	base := "/api/v1/devices/" + deviceID

	code, resp := env.do(t, http.MethodGet, base+"/auto-cleaning", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	data := resp.Data.(map[string]interface{})
	if data["shouldTrigger"] != false || data["method"] != "dry" {
		t.Errorf("Expected no trigger with dry method, got %v", data)
	}

	code, _ = env.do(t, http.MethodGet, "/api/v1/devices/missing/auto-cleaning", "")
	if code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}

	code, _ = env.do(t, http.MethodPut, "/api/v1/config/weather", `{"provider":"accuweather","apiKey":"k"}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown provider, got %d", code)
	}

	code, _ = env.do(t, http.MethodPut, "/api/v1/config/weather", `{"provider":"weatherbit","apiKey":"k"}`)
	if code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}

	code, _ = env.do(t, http.MethodPost, base+"/dust/refresh", "")
	if code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 without coordinates, got %d", code)
	}
}

func TestDashboardSession(t *testing.T) {
	env := newAPIEnv(t)
	deviceID := env.provision(t)

	server := httptest.NewServer(env.echo)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	read := func() sessionEvent {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event sessionEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON failed: %v", err)
		}
		return event
	}

	if err := conn.WriteJSON(sessionRequest{Select: deviceID}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	sections := make(map[string]bool)
	for {
		event := read()
		if event.Type == "selected" {
			break
		}
		if event.Type != "update" || event.DeviceID != deviceID {
			t.Fatalf("Unexpected event %+v", event)
		}
		sections[event.Section] = true
	}
	if len(sections) != 4 {
		t.Errorf("Expected initial snapshots of 4 sections, got %v", sections)
	}

	if err := env.sync.SetMode(context.Background(), deviceID, "automatic"); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	event := read()
	if event.Section != "cleaningControl" {
		t.Errorf("Expected cleaningControl update, got %+v", event)
	}
	control, ok := event.Value.(map[string]interface{})
	if !ok || control["mode"] != constants.CleaningModeAutomatic {
		t.Errorf("Expected automatic mode in update, got %v", event.Value)
	}

	if err := conn.WriteJSON(sessionRequest{Select: "missing"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	event = read()
	if event.Type != "error" || event.DeviceID != "missing" {
		t.Errorf("Expected error event for unknown device, got %+v", event)
	}

	if err := env.sync.SetMode(context.Background(), deviceID, constants.CleaningModeManual); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	event = read()
	if event.Type != "update" || event.DeviceID != deviceID {
		t.Errorf("Expected previous device to stay selected, got %+v", event)
	}
}
