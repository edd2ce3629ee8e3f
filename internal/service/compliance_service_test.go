package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
)

func TestComplianceServiceExpiresLapsedCertificates(t *testing.T) {
	assets := &fakeAssetRepo{certs: []domain.ComplianceCertificate{
		{ID: "c1", AssetID: "a1", AssetName: "db01", CertificateType: "PCI", Status: domain.CertificateValid,
			ExpiryDate: fixedNow.AddDate(0, 0, -1)},
		// expires today, still valid until tomorrow
		{ID: "c2", AssetID: "a2", AssetName: "web01", CertificateType: "SOC2", Status: domain.CertificateValid,
			ExpiryDate: fixedNow.Add(-time.Hour)},
		{ID: "c3", AssetID: "a3", AssetName: "lb01", CertificateType: "ISO27001", Status: domain.CertificateExpired,
			ExpiryDate: fixedNow.AddDate(-1, 0, 0)},
	}}
	dispatcher := newRecordingDispatcher()
	svc := NewComplianceService(assets, dispatcher, nil, fixedClock)

	expired, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []itsm.CertificateAlert{
		{AssetID: "a1", AssetName: "db01", CertificateID: "c1", CertificateType: "PCI"},
	}, expired)
	assert.Equal(t, []string{"c1"}, assets.expired)

	published := dispatcher.ofType(events.EventCertificateExpired)
	require.Len(t, published, 1)
	assert.Equal(t, events.CertificateExpiredPayload{AssetID: "a1", AssetName: "db01", CertificateID: "c1", CertificateType: "PCI"},
		published[0].Payload)

	again, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}
