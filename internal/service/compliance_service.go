package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// ComplianceService expires lapsed compliance certificates.
type ComplianceService struct {
	assets     repository.AssetRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// NewComplianceService constructs the service.
func NewComplianceService(assets repository.AssetRepository, dispatcher events.Dispatcher, logger *zap.Logger, clock Clock) *ComplianceService {
	return &ComplianceService{
		assets:     assets,
		dispatcher: dispatcher,
		logger:     loggerOrNop(logger),
		now:        clockOrNow(clock),
	}
}

// Run marks valid certificates whose expiry date has passed as expired and
// returns them. A certificate expired concurrently by another run is skipped.
func (s *ComplianceService) Run(ctx context.Context) ([]itsm.CertificateAlert, error) {
	certs, err := s.assets.ListCertificatesByStatus(ctx, domain.CertificateValid)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	candidates := itsm.ExpiredCertificates(certs, now)

	expired := make([]itsm.CertificateAlert, 0, len(candidates))
	for _, alert := range candidates {
		if err := s.assets.MarkCertificateExpired(ctx, alert.CertificateID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return expired, apperrors.MapError(err)
		}
		expired = append(expired, alert)
		publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventCertificateExpired, "", events.SystemActor, now,
			events.CertificateExpiredPayload(alert)))
	}
	s.logger.Info("compliance check finished", zap.Int("checked", len(certs)), zap.Int("expired", len(expired)))
	return expired, nil
}
