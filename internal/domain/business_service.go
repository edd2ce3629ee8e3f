package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessService is a customer-facing service whose outage costs revenue.
type BusinessService struct {
	ID                   string
	Name                 string
	Criticality          string
	RevenueImpactPerHour *decimal.Decimal
	CreatedAt            time.Time
	ModifiedAt           time.Time
}
