package mock

import (
	"context"
	"log/slog"

	"github.com/fundraisehq/donorcrm/internal/notification/domain"
)

// MockSender 开发与测试用的空投递实现
type MockSender struct{}

func NewMockSender() domain.Sender { return &MockSender{} }

func (s *MockSender) Send(ctx context.Context, n *domain.Notification) error {
	slog.Info("Mock donation alert sent",
		"user_id", n.UserID,
		"donation_id", n.DonationID,
		"amount", n.Amount.String(),
		"donation_type", n.DonationType,
	)
	return nil
}
