package domain

import "context"

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	// Publish 发布事件，key 用于分区路由
	Publish(ctx context.Context, eventType string, key string, payload any) error
}
