// Package messaging Kafka 事件发布实现
package messaging

import (
	"context"

	"github.com/fundraisehq/donorcrm/pkg/mq"
)

// KafkaEventPublisher 把领域事件发到固定 topic，
// 事件类型随消息体一起下发，key 用于分区内保序。
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// Envelope 事件信封
type Envelope struct {
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
}

// Publish 发布事件
func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return p.producer.SendMessage(ctx, p.topic, key, Envelope{
		EventType: eventType,
		Payload:   payload,
	})
}
