package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
)

const (
	testChannel  = "itsm:escalations"
	operatorDana = "3f1c2b9e-8d4a-4c5e-9b7f-2a6d1e0c4b11"
)

type slaFixture struct {
	items      *fakeWorkItemRepo
	publisher  *fakePublisher
	dispatcher *recordingDispatcher
	notifier   *NotificationService
	svc        *SLACheckService
}

func newSLAFixture() slaFixture {
	f := slaFixture{
		items: newFakeWorkItemRepo(
			domain.WorkItem{ID: "s1", Title: "VPN down", WorkType: domain.WorkTypeIncident, Status: domain.StatusNew,
				Priority: domain.Priority1, SLATargetMinutes: intPtr(60), CreatedAt: fixedNow.Add(-90 * time.Minute)},
			domain.WorkItem{ID: "s2", Title: "Printer jam", WorkType: domain.WorkTypeIncident, Status: domain.StatusInProgress,
				Priority: domain.Priority4, SLATargetMinutes: intPtr(30), CreatedAt: fixedNow.Add(-45 * time.Minute)},
			domain.WorkItem{ID: "s3", Title: "Slow wiki", WorkType: domain.WorkTypeIncident, Status: domain.StatusNew,
				Priority: domain.Priority2, SLATargetMinutes: intPtr(120), CreatedAt: fixedNow.Add(-30 * time.Minute)},
			domain.WorkItem{ID: "s4", Title: "Old outage", WorkType: domain.WorkTypeIncident, Status: domain.StatusClosed,
				Priority: domain.Priority1, SLATargetMinutes: intPtr(60), CreatedAt: fixedNow.Add(-10 * time.Hour)},
		),
		publisher:  &fakePublisher{},
		dispatcher: newRecordingDispatcher(),
	}
	f.notifier = NewNotificationService(NotificationDependencies{
		Dispatcher: f.dispatcher,
		Config:     config.NotificationConfig{EscalationChannel: testChannel},
		TeamRepo: &fakeTeamRepo{teams: map[string]*domain.Team{
			"incident_managers": {ID: "team-1", Name: "incident_managers"},
		}},
		UserRepo: &fakeUserRepo{users: map[string]*domain.User{
			operatorDana: {ID: operatorDana, DisplayName: "Dana Ops"},
		}},
		Publisher: f.publisher,
	})
	f.notifier.RegisterHandlers()
	f.svc = NewSLACheckService(SLACheckDependencies{
		WorkItemRepo: f.items,
		Escalator:    f.notifier,
		Dispatcher:   f.dispatcher,
		Clock:        fixedClock,
	})
	return f
}

func TestSLACheckServiceRunReportsBreachesInOrder(t *testing.T) {
	f := newSLAFixture()

	alerts, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "s1", alerts[0].WorkItemID)
	assert.InDelta(t, 90.0, alerts[0].ElapsedMinutes, 1e-9)
	require.NotNil(t, alerts[0].EscalationTarget)
	assert.Equal(t, itsm.Target("team:incident_managers"), *alerts[0].EscalationTarget)

	assert.Equal(t, "s2", alerts[1].WorkItemID)
	assert.Nil(t, alerts[1].EscalationTarget)

	assert.Len(t, f.dispatcher.ofType(events.EventSLABreached), 2)
	requested := f.dispatcher.ofType(events.EventEscalationRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, "s1", requested[0].WorkItemID)
	assert.Equal(t, events.ActorSystem, requested[0].Actor.Type)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, testChannel, f.publisher.messages[0].channel)
	var notice EscalationNotice
	require.NoError(t, json.Unmarshal(f.publisher.messages[0].payload, &notice))
	assert.Equal(t, "s1", notice.WorkItemID)
	assert.Equal(t, itsm.TargetTeam, notice.Kind)
	assert.Equal(t, "incident_managers", notice.Recipient)
	assert.True(t, notice.Resolved)
}

func TestSLACheckServiceRunIsRepeatable(t *testing.T) {
	f := newSLAFixture()

	first, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	second, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.publisher.messages, 2)
}

func TestSLACheckServiceRunSurvivesPublishFailure(t *testing.T) {
	f := newSLAFixture()
	f.publisher.err = errors.New("redis unavailable")

	alerts, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestSLACheckServiceEscalate(t *testing.T) {
	f := newSLAFixture()
	ctx := context.Background()

	notice, err := f.svc.Escalate(ctx, "s3", "user:"+operatorDana)
	require.NoError(t, err)
	assert.Equal(t, itsm.TargetUser, notice.Kind)
	assert.Equal(t, "Dana Ops", notice.Recipient)
	assert.True(t, notice.Resolved)

	notice, err = f.svc.Escalate(ctx, "s3", "team:night_shift")
	require.NoError(t, err)
	assert.False(t, notice.Resolved)
	assert.Equal(t, "night_shift", notice.Recipient)
	assert.Len(t, f.publisher.messages, 2)
}

func TestSLACheckServiceEscalateToNonUUIDUserIsUnresolved(t *testing.T) {
	f := newSLAFixture()

	notice, err := f.svc.Escalate(context.Background(), "s3", "user:bob")
	require.NoError(t, err)
	assert.False(t, notice.Resolved)
	assert.Equal(t, itsm.TargetUser, notice.Kind)
	assert.Equal(t, "bob", notice.Recipient)
	assert.Len(t, f.publisher.messages, 1)
}

func TestSLACheckServiceEscalateRejections(t *testing.T) {
	f := newSLAFixture()
	ctx := context.Background()

	_, err := f.svc.Escalate(ctx, "s1", "group:ops")
	requireDomainError(t, err, http.StatusBadRequest)

	_, err = f.svc.Escalate(ctx, "s1", "team:")
	requireDomainError(t, err, http.StatusBadRequest)

	_, err = f.svc.Escalate(ctx, "missing", "team:ops")
	requireDomainError(t, err, http.StatusNotFound)

	noEscalator := NewSLACheckService(SLACheckDependencies{WorkItemRepo: f.items, Clock: fixedClock})
	_, err = noEscalator.Escalate(ctx, "s1", "team:ops")
	requireDomainError(t, err, http.StatusInternalServerError)

	assert.Empty(t, f.publisher.messages)
}
