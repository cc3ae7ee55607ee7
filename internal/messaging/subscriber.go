// internal/messaging/subscriber.go
package messaging

import (
	"fmt"

	"solar-sync/internal/interfaces"
	"solar-sync/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber MQTT 구독 관리자
type Subscriber struct {
	client interfaces.MessagePublisher
	router *Router
	topics Topics
}

// NewSubscriber 새 구독자 생성
func NewSubscriber(client interfaces.MessagePublisher, router *Router, topics Topics) *Subscriber {
	utils.Logger.Infof("🏗️ CREATING MQTT Subscriber")

	subscriber := &Subscriber{
		client: client,
		router: router,
		topics: topics,
	}

	utils.Logger.Infof("✅ MQTT Subscriber CREATED")
	return subscriber
}

// SubscribeAll 모든 디바이스 보고 토픽 구독
func (s *Subscriber) SubscribeAll() error {
	utils.Logger.Infof("🔔 STARTING All Subscriptions")

	for _, kind := range InboundKinds {
		topic := s.topics.Wildcard(kind)
		utils.Logger.Infof("🔔 SUBSCRIBING TO: %s", topic)

		if err := s.client.Subscribe(topic, 1, s.handleMessage); err != nil {
			utils.Logger.Errorf("❌ SUBSCRIPTION FAILED: %s - %v", topic, err)
			return fmt.Errorf("failed to subscribe to %s: %v", topic, err)
		}
	}

	utils.Logger.Infof("🎉 ALL SUBSCRIPTIONS COMPLETED")
	return nil
}

// handleMessage 수신된 메시지를 라우터에 전달
func (s *Subscriber) handleMessage(client mqtt.Client, msg mqtt.Message) {
	utils.Logger.Debugf("📨 MESSAGE RECEIVED Topic: %s Content: %s", msg.Topic(), string(msg.Payload()))
	s.router.RouteMessage(client, msg)
}
