package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/itsm-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/service"
)

type memWorkItems struct {
	mu    sync.Mutex
	items map[string]domain.WorkItem
	order []string
}

func (m *memWorkItems) Create(_ context.Context, item *domain.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.NewString()
	m.order = append(m.order, item.ID)
	item.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	item.ModifiedAt = item.CreatedAt
	m.items[item.ID] = *item
	return nil
}

func (m *memWorkItems) GetByID(_ context.Context, id string) (*domain.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (m *memWorkItems) all(keep func(domain.WorkItem) bool) []domain.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkItem
	for _, id := range m.order {
		if item, ok := m.items[id]; ok && keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (m *memWorkItems) ListWithFilter(_ context.Context, _ repository.WorkItemFilter) ([]domain.WorkItem, error) {
	return m.all(func(domain.WorkItem) bool { return true }), nil
}

func (m *memWorkItems) ListOpen(_ context.Context) ([]domain.WorkItem, error) {
	return m.all(func(item domain.WorkItem) bool { return item.IsOpen() }), nil
}

func (m *memWorkItems) ListAll(_ context.Context) ([]domain.WorkItem, error) {
	return m.all(func(domain.WorkItem) bool { return true }), nil
}

func (m *memWorkItems) ListClosedBetween(_ context.Context, _, _ time.Time) ([]domain.WorkItem, error) {
	return nil, nil
}

func (m *memWorkItems) UpdateStatus(_ context.Context, item *domain.WorkItem, status domain.WorkItemStatus, expected time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.items[item.ID]
	if !stored.ModifiedAt.Equal(expected) {
		return repository.ErrStaleWrite
	}
	stored.Status = status
	stored.ModifiedAt = stored.ModifiedAt.Add(time.Second)
	m.items[item.ID] = stored
	*item = stored
	return nil
}

type noServices struct{}

func (noServices) GetByID(context.Context, string) (*domain.BusinessService, error) {
	return nil, pgx.ErrNoRows
}
func (noServices) GetByIDs(context.Context, []string) (map[string]*domain.BusinessService, error) {
	return map[string]*domain.BusinessService{}, nil
}

type memUsers struct {
	users map[string]*domain.User
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app   *fiber.App
	items *memWorkItems
}

func newTestServer(t *testing.T, redisErr error) *testServer {
	t.Helper()
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	require.NoError(t, err)

	items := &memWorkItems{items: map[string]domain.WorkItem{}}
	users := &memUsers{users: map[string]*domain.User{}}
	authSvc := service.NewAuthService(config.AuthConfig{JWTSecret: "router-test", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}, users)
	_, err = authSvc.Register(context.Background(), "Agent", "agent@example.com", "agent-pw", domain.UserRoleAgent)
	require.NoError(t, err)
	_, err = authSvc.Register(context.Background(), "Manager", "manager@example.com", "manager-pw", domain.UserRoleManager)
	require.NoError(t, err)

	workItems := service.NewWorkItemService(service.WorkItemDependencies{
		WorkItemRepo:        items,
		BusinessServiceRepo: noServices{},
		Logger:              logger,
	})
	sla := service.NewSLACheckService(service.SLACheckDependencies{WorkItemRepo: items, Logger: logger})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("itsm-service", "test", pinger{}, pinger{err: redisErr}),
		Auth:           handlers.NewAuthHandler(authSvc),
		WorkItems:      handlers.NewWorkItemsHandler(workItems),
		Automation:     handlers.NewAutomationHandler(nil),
		Orchestration:  handlers.NewOrchestrationHandler(sla, nil, nil),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), users),
		Gatherer:       registry,
	})
	return &testServer{app: app, items: items}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	return data["token"].(string)
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	status, body := srv.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	down := newTestServer(t, errors.New("connection refused"))
	status, body = down.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, fiber.MethodGet, "/api/workitems/queue", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = srv.do(t, fiber.MethodGet, "/api/workitems/queue", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = srv.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{"email": "agent@example.com", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWorkItemLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "agent@example.com", "agent-pw")

	status, body := srv.do(t, fiber.MethodPost, "/api/workitems/", token, map[string]any{
		"title": "Payroll export failing", "work_type": "incident", "priority": "priority_1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "new", created["status"])
	assert.EqualValues(t, 60, created["sla_target_minutes"])

	status, body = srv.do(t, fiber.MethodGet, "/api/workitems/"+id+"/sla-target", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 60, body["sla_minutes"])

	status, body = srv.do(t, fiber.MethodGet, "/api/workitems/"+id+"/escalation", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "escalation_target")
	assert.Nil(t, body["escalation_target"])

	status, body = srv.do(t, fiber.MethodPost, "/api/workitems/"+id+"/status", token, map[string]any{"status": "fulfilled"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	status, body = srv.do(t, fiber.MethodPost, "/api/workitems/"+id+"/status", token, map[string]any{"status": "in_progress", "modified_at": stale})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = srv.do(t, fiber.MethodPost, "/api/workitems/"+id+"/status", token, map[string]any{"status": "in_progress"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "in_progress", body["data"].(map[string]any)["status"])

	status, body = srv.do(t, fiber.MethodGet, "/api/workitems/queue", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	queue := body["data"].([]any)
	require.Len(t, queue, 1)
	// priority_1 plus the under-an-hour sla urgency band
	assert.EqualValues(t, 500, queue[0].(map[string]any)["smart_score"])

	status, body = srv.do(t, fiber.MethodGet, "/api/workitems/"+uuid.NewString(), token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestMalformedIdentifiersAreClientErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	agent := srv.login(t, "agent@example.com", "agent-pw")
	manager := srv.login(t, "manager@example.com", "manager-pw")

	for _, path := range []string{
		"/api/workitems/not-a-uuid",
		"/api/workitems/not-a-uuid/sla-target",
		"/api/workitems/not-a-uuid/impact",
		"/api/workitems/not-a-uuid/escalation",
		"/api/workitems/not-a-uuid/automation-eligibility",
	} {
		status, body := srv.do(t, fiber.MethodGet, path, agent, nil)
		assert.Equal(t, fiber.StatusNotFound, status, path)
		assert.Equal(t, "NOT_FOUND", errorCode(body), path)
	}

	status, body := srv.do(t, fiber.MethodPost, "/api/workitems/not-a-uuid/status", agent, map[string]any{"status": "closed"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = srv.do(t, fiber.MethodPost, "/api/orchestration/escalations", manager,
		map[string]any{"work_item_id": "42", "escalation_target": "user:bob"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestSLATargetWithoutSchemaEntryIsNull(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.login(t, "agent@example.com", "agent-pw")

	status, body := srv.do(t, fiber.MethodPost, "/api/workitems/", token, map[string]any{
		"title": "New monitor", "work_type": "request", "priority": "priority_2",
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := body["data"].(map[string]any)["id"].(string)

	status, body = srv.do(t, fiber.MethodGet, "/api/workitems/"+id+"/sla-target", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "sla_minutes")
	assert.Nil(t, body["sla_minutes"])
}

func TestOrchestrationRequiresManager(t *testing.T) {
	srv := newTestServer(t, nil)
	agent := srv.login(t, "agent@example.com", "agent-pw")
	manager := srv.login(t, "manager@example.com", "manager-pw")

	status, body := srv.do(t, fiber.MethodPost, "/api/orchestration/sla-checks", agent, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, fiber.MethodPost, "/api/orchestration/sla-checks", manager, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "alerts")

	status, body = srv.do(t, fiber.MethodPost, "/api/orchestration/escalations", manager, map[string]any{"work_item_id": "wi-1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, fiber.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
