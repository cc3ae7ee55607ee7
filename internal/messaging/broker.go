// internal/messaging/broker.go
package messaging

import (
	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// NewEmbeddedBroker 단일 배포용 내장 MQTT 브로커 생성 (Serve는 호출자가 실행)
func NewEmbeddedBroker(addr string) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	return server, nil
}
