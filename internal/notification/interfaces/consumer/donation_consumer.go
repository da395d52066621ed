// Package consumer 捐赠事件的 Kafka 消费端
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	donationdomain "github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/internal/notification/application"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/mq"
)

// DonationConsumer 消费 donation.received 事件并触发提醒
type DonationConsumer struct {
	consumer *mq.KafkaConsumer
	service  *application.NotificationService
	dlq      *mq.DeadLetterQueue
}

// NewDonationConsumer 创建捐赠事件消费者；dlq 可为 nil，无法解析的消息将只记日志
func NewDonationConsumer(consumer *mq.KafkaConsumer, service *application.NotificationService, dlq *mq.DeadLetterQueue) *DonationConsumer {
	return &DonationConsumer{consumer: consumer, service: service, dlq: dlq}
}

// envelope 与发布端的事件信封保持一致
type envelope struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Run 消费循环，阻塞直到 ctx 取消。
// 单条消息处理失败只记录，消费位点照常推进。
func (c *DonationConsumer) Run(ctx context.Context) error {
	logger.Info(ctx, "donation notification consumer started")
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				logger.Info(context.Background(), "donation notification consumer stopped")
				return nil
			}
			logger.Error(ctx, "failed to read donation event", "error", err)
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *DonationConsumer) handle(ctx context.Context, msg *mq.Message) {
	var env envelope
	if err := msg.UnmarshalPayload(&env); err != nil {
		c.discard(ctx, msg, "malformed event envelope", err)
		return
	}
	if env.EventType != donationdomain.DonationReceivedEventType {
		return
	}

	var event donationdomain.DonationReceivedEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		c.discard(ctx, msg, fmt.Sprintf("malformed %s payload", env.EventType), err)
		return
	}

	c.service.NotifyDonation(ctx, event)
}

// discard 无法解析的消息送入死信主题，留待人工排查
func (c *DonationConsumer) discard(ctx context.Context, msg *mq.Message, reason string, cause error) {
	logger.Warn(ctx, "discarding donation event", "offset", msg.Offset, "reason", reason, "error", cause)
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Send(ctx, msg, reason, cause); err != nil {
		logger.Error(ctx, "failed to forward event to dead letter topic", "offset", msg.Offset, "error", err)
	}
}
