package application

import (
	"context"
	"time"

	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
)

// DonationReassigner 合并时转移捐赠归属
type DonationReassigner interface {
	ReassignContact(ctx context.Context, fromContactID, toContactID uint) error
}

// ResolutionService 人工复核的 merge/ignore 工作流。
// merge 执行真实合并：被合并方的子记录与捐赠全部转移到主记录，
// 被合并方软删除，整个过程在一个事务内完成。
type ResolutionService struct {
	matches   domain.DuplicateMatchRepository
	history   domain.MergeHistoryRepository
	contacts  contactdomain.ContactRepository
	donations DonationReassigner
	metrics   *metrics.Metrics
}

// NewResolutionService 创建复核服务
func NewResolutionService(
	matches domain.DuplicateMatchRepository,
	history domain.MergeHistoryRepository,
	contacts contactdomain.ContactRepository,
	donations DonationReassigner,
	m *metrics.Metrics,
) *ResolutionService {
	return &ResolutionService{
		matches:   matches,
		history:   history,
		contacts:  contacts,
		donations: donations,
		metrics:   m,
	}
}

// Ignore 忽略候选对：只标记 resolved，无其他副作用
func (s *ResolutionService) Ignore(ctx context.Context, matchID uint, reviewedBy string) (*domain.DuplicateMatch, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := match.Resolve(reviewedBy, time.Now()); err != nil {
		return nil, err
	}
	if err := s.matches.Update(ctx, match); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DuplicatesResolved.Inc()
	}
	logger.Info(ctx, "duplicate match ignored", "match_id", match.ID, "reviewed_by", reviewedBy)
	return match, nil
}

// Merge 把候选对合并到指定的主联系人。
// 事务内完成：标记 resolved、写审计、转移子记录与捐赠、软删除被合并方。
func (s *ResolutionService) Merge(ctx context.Context, matchID, primaryContactID uint, reviewedBy string) (*domain.DuplicateMatch, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Contains(primaryContactID) {
		return nil, domain.ErrPrimaryNotInPair
	}
	if err := match.Resolve(reviewedBy, time.Now()); err != nil {
		return nil, err
	}
	secondaryID := match.Other(primaryContactID)

	err = s.contacts.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.matches.Update(txCtx, match); err != nil {
			return err
		}
		if err := s.history.Save(txCtx, &domain.MergeHistory{
			PrimaryContactID: primaryContactID,
			MergedContactID:  secondaryID,
			MergedBy:         reviewedBy,
			MergedAt:         *match.ReviewedAt,
		}); err != nil {
			return err
		}
		if err := s.donations.ReassignContact(txCtx, secondaryID, primaryContactID); err != nil {
			return err
		}
		return s.contacts.MergeInto(txCtx, primaryContactID, secondaryID)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DuplicatesResolved.Inc()
	}
	logger.Info(ctx, "duplicate match merged",
		"match_id", match.ID,
		"primary_contact_id", primaryContactID,
		"merged_contact_id", secondaryID,
		"reviewed_by", reviewedBy,
	)
	return match, nil
}
