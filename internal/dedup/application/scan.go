// Package application 重复检测应用服务
package application

import (
	"context"

	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
)

// ScanSummary 一次扫描的统计结果
type ScanSummary struct {
	TenantID            string `json:"tenant_id"`
	ContactsScanned     int    `json:"contacts_scanned"`
	PairsCompared       int    `json:"pairs_compared"`
	CandidatesPersisted int    `json:"candidates_persisted"`
	PairsFailed         int    `json:"pairs_failed"`
}

// ScanService 租户级全量重复扫描。
// 逐对比较为 O(n²)，结果仅供人工复核，扫描与接入写入之间不加锁。
type ScanService struct {
	contacts  contactdomain.ContactRepository
	matches   domain.DuplicateMatchRepository
	threshold float64
	pageSize  int
	metrics   *metrics.Metrics
}

// NewScanService 创建扫描服务。threshold 为持久化下限，pageSize 控制单页加载量。
func NewScanService(contacts contactdomain.ContactRepository, matches domain.DuplicateMatchRepository, threshold float64, pageSize int, m *metrics.Metrics) *ScanService {
	if threshold <= 0 {
		threshold = 50
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	return &ScanService{
		contacts:  contacts,
		matches:   matches,
		threshold: threshold,
		pageSize:  pageSize,
		metrics:   m,
	}
}

// ScanTenant 扫描一个租户的全部联系人并持久化候选重复对。
// 单对打分或落库失败只记录并跳过，不中断整次扫描；重复执行是幂等的。
func (s *ScanService) ScanTenant(ctx context.Context, tenantID string) (*ScanSummary, error) {
	profiles, err := s.loadProfiles(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &ScanSummary{TenantID: tenantID, ContactsScanned: len(profiles)}

	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			summary.PairsCompared++
			if err := s.scorePair(ctx, tenantID, profiles[i], profiles[j], summary); err != nil {
				summary.PairsFailed++
				logger.Warn(ctx, "duplicate pair comparison failed",
					"tenant_id", tenantID,
					"contact1_id", profiles[i].ID,
					"contact2_id", profiles[j].ID,
					"error", err,
				)
			}
		}
	}

	s.refreshUnresolvedGauge(ctx, tenantID)

	logger.Info(ctx, "duplicate scan completed",
		"tenant_id", tenantID,
		"contacts", summary.ContactsScanned,
		"pairs", summary.PairsCompared,
		"persisted", summary.CandidatesPersisted,
		"failed", summary.PairsFailed,
	)
	return summary, nil
}

// scorePair 打分并在达到阈值且无未解决记录时落库
func (s *ScanService) scorePair(ctx context.Context, tenantID string, a, b domain.ContactProfile, summary *ScanSummary) error {
	scores := domain.Score(a, b)
	if scores.Confidence < s.threshold {
		return nil
	}

	exists, err := s.matches.ExistsUnresolved(ctx, a.ID, b.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	match := domain.NewDuplicateMatch(tenantID, a.ID, b.ID, scores)
	if err := s.matches.Save(ctx, match); err != nil {
		return err
	}

	summary.CandidatesPersisted++
	if s.metrics != nil {
		s.metrics.DuplicatesDetected.Inc()
	}
	return nil
}

// loadProfiles 分页加载租户联系人快照，避免一次性拉全表
func (s *ScanService) loadProfiles(ctx context.Context, tenantID string) ([]domain.ContactProfile, error) {
	var profiles []domain.ContactProfile
	offset := 0
	for {
		contacts, _, err := s.contacts.ListByTenant(ctx, tenantID, offset, s.pageSize)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			profiles = append(profiles, domain.ProfileFromContact(c))
		}
		if len(contacts) < s.pageSize {
			return profiles, nil
		}
		offset += s.pageSize
	}
}

func (s *ScanService) refreshUnresolvedGauge(ctx context.Context, tenantID string) {
	if s.metrics == nil {
		return
	}
	count, err := s.matches.CountUnresolved(ctx, tenantID)
	if err != nil {
		logger.Warn(ctx, "failed to count unresolved duplicates", "tenant_id", tenantID, "error", err)
		return
	}
	s.metrics.DuplicatesUnsettled.Set(float64(count))
}
