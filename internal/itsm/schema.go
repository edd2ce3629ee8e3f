package itsm

import (
	"fmt"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// SLAKeyDefault is the SLA entry used when no priority-specific entry matches.
const SLAKeyDefault = "default"

// WorkTypeSchema is the configuration of one work type.
type WorkTypeSchema struct {
	Statuses []domain.WorkItemStatus `yaml:"statuses"`
	SLA      map[string]int          `yaml:"sla"`
}

type workTypeEntry struct {
	statuses []domain.WorkItemStatus
	allowed  map[domain.WorkItemStatus]struct{}
	sla      map[string]int
}

// Schema holds the allowed statuses and SLA minutes per work type.
// It is read-only after construction and safe for concurrent use.
type Schema struct {
	workTypes map[domain.WorkType]workTypeEntry
}

// NewSchema copies defs into an immutable schema.
func NewSchema(defs map[domain.WorkType]WorkTypeSchema) (*Schema, error) {
	s := &Schema{workTypes: make(map[domain.WorkType]workTypeEntry, len(defs))}
	for wt, def := range defs {
		if !wt.Valid() {
			return nil, fmt.Errorf("unknown work type %q", wt)
		}
		entry := workTypeEntry{
			statuses: append([]domain.WorkItemStatus(nil), def.Statuses...),
			allowed:  make(map[domain.WorkItemStatus]struct{}, len(def.Statuses)),
			sla:      make(map[string]int, len(def.SLA)),
		}
		for _, st := range def.Statuses {
			entry.allowed[st] = struct{}{}
		}
		for key, minutes := range def.SLA {
			if minutes <= 0 {
				return nil, fmt.Errorf("work type %s: sla %q must be positive, got %d", wt, key, minutes)
			}
			entry.sla[key] = minutes
		}
		s.workTypes[wt] = entry
	}
	return s, nil
}

// DefaultSchemaDefinition returns the built-in work type table.
func DefaultSchemaDefinition() map[domain.WorkType]WorkTypeSchema {
	return map[domain.WorkType]WorkTypeSchema{
		domain.WorkTypeIncident: {
			Statuses: []domain.WorkItemStatus{domain.StatusNew, domain.StatusInProgress, domain.StatusResolved, domain.StatusClosed},
			SLA: map[string]int{
				string(domain.Priority1): 60,
				string(domain.Priority2): 120,
				string(domain.Priority3): 240,
			},
		},
		domain.WorkTypeRequest: {
			Statuses: []domain.WorkItemStatus{domain.StatusNew, domain.StatusInProgress, domain.StatusFulfilled, domain.StatusClosed},
			SLA:      map[string]int{"standard": 480},
		},
		domain.WorkTypeProblem: {
			Statuses: []domain.WorkItemStatus{domain.StatusNew, domain.StatusAnalysis, domain.StatusResolved, domain.StatusClosed},
			SLA:      map[string]int{SLAKeyDefault: 1440},
		},
	}
}

// ValidateStatus reports whether status is allowed for the work type.
// Unknown work types allow nothing.
func (s *Schema) ValidateStatus(workType domain.WorkType, status domain.WorkItemStatus) bool {
	if s == nil {
		return false
	}
	_, ok := s.workTypes[workType].allowed[status]
	return ok
}

// Statuses lists the allowed statuses of a work type in configured order.
func (s *Schema) Statuses(workType domain.WorkType) []domain.WorkItemStatus {
	if s == nil {
		return nil
	}
	return append([]domain.WorkItemStatus(nil), s.workTypes[workType].statuses...)
}

// SLATarget returns the SLA minutes for the priority, falling back to the
// "default" entry. Work types without a "default" entry have no fallback.
func (s *Schema) SLATarget(workType domain.WorkType, priority domain.Priority) (int, bool) {
	if s == nil {
		return 0, false
	}
	sla := s.workTypes[workType].sla
	if priority != "" {
		if minutes, ok := sla[string(priority)]; ok {
			return minutes, true
		}
	}
	minutes, ok := sla[SLAKeyDefault]
	return minutes, ok
}
