package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/repository"
)

var fixedNow = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

type fakeWorkItemRepo struct {
	mu     sync.Mutex
	items  map[string]domain.WorkItem
	seq    int
	writes int
}

func newFakeWorkItemRepo(items ...domain.WorkItem) *fakeWorkItemRepo {
	r := &fakeWorkItemRepo{items: map[string]domain.WorkItem{}}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeWorkItemRepo) Create(_ context.Context, item *domain.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.writes++
	item.ID = fmt.Sprintf("wi-new-%d", r.seq)
	item.CreatedAt = fixedNow
	item.ModifiedAt = fixedNow
	r.items[item.ID] = *item
	return nil
}

func (r *fakeWorkItemRepo) GetByID(_ context.Context, id string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (r *fakeWorkItemRepo) sorted(keep func(domain.WorkItem) bool) []domain.WorkItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WorkItem, 0, len(r.items))
	for _, item := range r.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeWorkItemRepo) ListWithFilter(_ context.Context, _ repository.WorkItemFilter) ([]domain.WorkItem, error) {
	return r.sorted(func(domain.WorkItem) bool { return true }), nil
}

func (r *fakeWorkItemRepo) ListOpen(_ context.Context) ([]domain.WorkItem, error) {
	return r.sorted(func(item domain.WorkItem) bool { return item.IsOpen() }), nil
}

func (r *fakeWorkItemRepo) ListAll(_ context.Context) ([]domain.WorkItem, error) {
	return r.sorted(func(domain.WorkItem) bool { return true }), nil
}

func (r *fakeWorkItemRepo) ListClosedBetween(_ context.Context, from, to time.Time) ([]domain.WorkItem, error) {
	return r.sorted(func(item domain.WorkItem) bool {
		closed := item.Status == domain.StatusClosed || item.Status == domain.StatusResolved || item.Status == domain.StatusFulfilled
		return closed && !item.ModifiedAt.Before(from) && item.ModifiedAt.Before(to)
	}), nil
}

func (r *fakeWorkItemRepo) UpdateStatus(_ context.Context, item *domain.WorkItem, status domain.WorkItemStatus, expected time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.ModifiedAt.Equal(expected) {
		return repository.ErrStaleWrite
	}
	r.writes++
	stored.Status = status
	stored.ModifiedAt = stored.ModifiedAt.Add(time.Second)
	r.items[item.ID] = stored
	*item = stored
	return nil
}

type fakeBusinessServiceRepo struct {
	services map[string]*domain.BusinessService
}

func (r *fakeBusinessServiceRepo) GetByID(_ context.Context, id string) (*domain.BusinessService, error) {
	svc, ok := r.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return svc, nil
}

func (r *fakeBusinessServiceRepo) GetByIDs(_ context.Context, ids []string) (map[string]*domain.BusinessService, error) {
	out := map[string]*domain.BusinessService{}
	for _, id := range ids {
		if svc, ok := r.services[id]; ok {
			out[id] = svc
		}
	}
	return out, nil
}

type fakeAssetRepo struct {
	assets  map[string]*domain.Asset
	certs   []domain.ComplianceCertificate
	expired []string
}

func (r *fakeAssetRepo) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return asset, nil
}

func (r *fakeAssetRepo) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Asset, error) {
	out := map[string]*domain.Asset{}
	for _, id := range ids {
		if asset, ok := r.assets[id]; ok {
			out[id] = asset
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) ListCertificatesByStatus(_ context.Context, status domain.CertificateStatus) ([]domain.ComplianceCertificate, error) {
	var out []domain.ComplianceCertificate
	for _, cert := range r.certs {
		if cert.Status == status {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) MarkCertificateExpired(_ context.Context, id string) error {
	for i := range r.certs {
		if r.certs[i].ID == id && r.certs[i].Status == domain.CertificateValid {
			r.certs[i].Status = domain.CertificateExpired
			r.expired = append(r.expired, id)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeRuleRepo struct {
	rules []domain.AutomationRule
	stats map[string]domain.RuleRunStats
	logs  []domain.AutomationExecutionLog
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string) (*domain.AutomationRule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			rule := r.rules[i]
			return &rule, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRuleRepo) ListActive(_ context.Context) ([]domain.AutomationRule, error) {
	var out []domain.AutomationRule
	for _, rule := range r.rules {
		if rule.Active() {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) CreateLog(_ context.Context, entry *domain.AutomationExecutionLog) error {
	entry.CreatedAt = fixedNow
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *fakeRuleRepo) RunStats(_ context.Context, ids []string) (map[string]domain.RuleRunStats, error) {
	out := map[string]domain.RuleRunStats{}
	for _, id := range ids {
		if s, ok := r.stats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeTeamRepo struct {
	teams map[string]*domain.Team
}

func (r *fakeTeamRepo) GetByName(_ context.Context, name string) (*domain.Team, error) {
	team, ok := r.teams[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return team, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeAnalyticsRepo struct {
	impacts []domain.FinancialImpact
	stored  []domain.AnalyticsMetric
}

func (r *fakeAnalyticsRepo) CreateMetrics(_ context.Context, metrics []domain.AnalyticsMetric) error {
	r.stored = append(r.stored, metrics...)
	return nil
}

func (r *fakeAnalyticsRepo) ListFinancialImpacts(_ context.Context, ids []string) ([]domain.FinancialImpact, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.FinancialImpact
	for _, impact := range r.impacts {
		if want[impact.WorkItemID] {
			out = append(out, impact)
		}
	}
	return out, nil
}

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.messages = append(p.messages, published{channel: channel, payload: payload})
	return 1, nil
}
