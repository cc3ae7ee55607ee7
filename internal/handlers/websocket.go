// internal/handlers/websocket.go
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"solar-sync/internal/devicesync"
	"solar-sync/internal/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionRequest 대시보드 → 서버 메시지
type sessionRequest struct {
	Select string `json:"select"`
}

// sessionEvent 서버 → 대시보드 메시지
type sessionEvent struct {
	Type     string      `json:"type"`
	DeviceID string      `json:"deviceId,omitempty"`
	Section  string      `json:"section,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// wsConn 동시 쓰기 직렬화
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(event sessionEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteJSON(event)
}

// DashboardSession 웹소켓 대시보드 세션
//
// {"select":"<deviceId>"} 메시지로 구독 디바이스를 바꾸며 연결이 끊기면 모든 구독이 해제된다.
func (h *APIHandler) DashboardSession(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		utils.Logger.Warnf("WebSocket upgrade failed: %v", err)
		return nil
	}
	ws := &wsConn{conn: conn}
	defer conn.Close()

	session := h.sync.NewSession(func(update devicesync.DeviceUpdate) {
		err := ws.send(sessionEvent{
			Type:     "update",
			DeviceID: update.DeviceID,
			Section:  update.Section,
			Value:    update.Value,
		})
		if err != nil {
			utils.Logger.Warnf("WebSocket update for %s failed: %v", update.DeviceID, err)
		}
	})
	defer session.Close()

	utils.Logger.Infof("🔌 Dashboard session opened from %s", c.RealIP())

	for {
		var request sessionRequest
		if err := conn.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Logger.Warnf("WebSocket read failed: %v", err)
			}
			break
		}

		reply := sessionEvent{Type: "selected", DeviceID: request.Select}
		if err := session.Select(context.Background(), request.Select); err != nil {
			reply = sessionEvent{Type: "error", DeviceID: request.Select, Message: toAppError(err).Message}
		}
		if err := ws.send(reply); err != nil {
			utils.Logger.Warnf("WebSocket reply failed: %v", err)
			break
		}
	}

	utils.Logger.Infof("🔌 Dashboard session closed (%s)", session.Current())
	return nil
}
