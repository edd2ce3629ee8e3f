package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// AssetRepository covers assets and their compliance certificates.
type AssetRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Asset, error)
	ListCertificatesByStatus(ctx context.Context, status domain.CertificateStatus) ([]domain.ComplianceCertificate, error)
	MarkCertificateExpired(ctx context.Context, id string) error
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs repository.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, name, asset_type, status, criticality, created_at, modified_at`

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1`, id))
}

func (r *assetRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Asset, error) {
	result := make(map[string]*domain.Asset, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result[asset.ID] = asset
	}
	return result, rows.Err()
}

func (r *assetRepository) ListCertificatesByStatus(ctx context.Context, status domain.CertificateStatus) ([]domain.ComplianceCertificate, error) {
	const query = `
        SELECT c.id, c.asset_id, a.name, c.certificate_type, c.expiry_date, c.status
        FROM compliance_certificates c
        JOIN assets a ON a.id = c.asset_id
        WHERE c.status=$1
        ORDER BY c.expiry_date ASC, c.id ASC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplianceCertificate
	for rows.Next() {
		var cert domain.ComplianceCertificate
		if err := rows.Scan(&cert.ID, &cert.AssetID, &cert.AssetName, &cert.CertificateType, &cert.ExpiryDate, &cert.Status); err != nil {
			return nil, err
		}
		result = append(result, cert)
	}
	return result, rows.Err()
}

func (r *assetRepository) MarkCertificateExpired(ctx context.Context, id string) error {
	const query = `
        UPDATE compliance_certificates SET status=$1, modified_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.CertificateExpired, id, domain.CertificateValid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var asset domain.Asset
	if err := row.Scan(
		&asset.ID,
		&asset.Name,
		&asset.AssetType,
		&asset.Status,
		&asset.Criticality,
		&asset.CreatedAt,
		&asset.ModifiedAt,
	); err != nil {
		return nil, err
	}
	return &asset, nil
}
