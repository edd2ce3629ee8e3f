package domain

import "time"

// Asset is a tracked piece of infrastructure (server, switch, license...).
type Asset struct {
	ID          string
	Name        string
	AssetType   string
	Status      string
	Criticality string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// CertificateStatus tracks compliance certificate validity.
type CertificateStatus string

const (
	CertificateValid   CertificateStatus = "valid"
	CertificateExpired CertificateStatus = "expired"
)

// ComplianceCertificate attests an asset against a standard until ExpiryDate.
type ComplianceCertificate struct {
	ID              string
	AssetID         string
	AssetName       string
	CertificateType string
	ExpiryDate      time.Time
	Status          CertificateStatus
}
