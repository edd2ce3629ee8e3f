package itsm

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Impact is the estimated business cost of a period of downtime.
type Impact struct {
	DowntimeMinutes float64 `json:"downtime_minutes"`
	RevenueLoss     float64 `json:"revenue_loss"`
}

var minutesPerHour = decimal.NewFromInt(60)

// CalculateBusinessImpact pro-rates the service's hourly revenue impact over
// durationMinutes. A nil service or nil rate yields zero loss.
func CalculateBusinessImpact(service *domain.BusinessService, durationMinutes float64) Impact {
	impact := Impact{DowntimeMinutes: durationMinutes}
	if service == nil || service.RevenueImpactPerHour == nil {
		return impact
	}
	loss := decimal.NewFromFloat(durationMinutes).
		Mul(*service.RevenueImpactPerHour).
		Div(minutesPerHour)
	impact.RevenueLoss = loss.InexactFloat64()
	return impact
}
