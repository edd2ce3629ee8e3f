package itsm

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// CertificateAlert reports a certificate that lapsed.
type CertificateAlert struct {
	AssetID         string `json:"asset"`
	AssetName       string `json:"asset_name"`
	CertificateID   string `json:"certificate_id"`
	CertificateType string `json:"certificate"`
}

// ExpiredCertificates selects valid certificates whose expiry date is before
// today's date. Only calendar dates are compared.
func ExpiredCertificates(certs []domain.ComplianceCertificate, today time.Time) []CertificateAlert {
	cutoff := dateOf(today)
	alerts := make([]CertificateAlert, 0)
	for _, cert := range certs {
		if cert.Status != domain.CertificateValid {
			continue
		}
		if !dateOf(cert.ExpiryDate).Before(cutoff) {
			continue
		}
		alerts = append(alerts, CertificateAlert{
			AssetID:         cert.AssetID,
			AssetName:       cert.AssetName,
			CertificateID:   cert.ID,
			CertificateType: cert.CertificateType,
		})
	}
	return alerts
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
