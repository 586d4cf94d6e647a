package sweep

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crmsweep/internal/model"
)

type fakeTaskStore struct {
	tasks   []model.Task
	listErr error
}

func (s *fakeTaskStore) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	if s.listErr != nil {
		return 0, s.listErr
	}
	var count int64
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Status == model.TaskStatusDone || t.Status == model.TaskStatusOverdue {
			continue
		}
		if t.DueDate.Before(today) {
			t.Status = model.TaskStatusOverdue
			count++
		}
	}
	return count, nil
}

func (s *fakeTaskStore) ListOverdue(ctx context.Context, today time.Time) ([]model.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status != model.TaskStatusDone && t.DueDate.Before(today) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTaskStore) ListDueSoon(ctx context.Context, from, to time.Time) ([]model.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status != model.TaskStatusInProgress {
			continue
		}
		if !t.DueDate.Before(from) && !t.DueDate.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeLeadStore struct {
	leads   []model.Lead
	listErr error
}

func (s *fakeLeadStore) ListStale(ctx context.Context, status model.LeadStatus, before time.Time) ([]model.Lead, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Lead
	for _, l := range s.leads {
		if l.Status != status {
			continue
		}
		if l.LastActivityAt == nil || l.LastActivityAt.Before(before) {
			out = append(out, l)
		}
	}
	return out, nil
}

// fakeNotificationStore enforces the same-day uniqueness contract in memory.
type fakeNotificationStore struct {
	created []*model.Notification
	keys    map[string]bool
	failFor map[int64]error // entity IDs whose Create fails
	nextID  int64
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		keys:    make(map[string]bool),
		failFor: make(map[int64]error),
	}
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *model.Notification) (bool, error) {
	if err := s.failFor[n.EntityID]; err != nil {
		return false, err
	}
	key := fmt.Sprintf("%d|%s|%d|%s", n.UserID, n.Type, n.EntityID, n.CreatedAt.Format("2006-01-02"))
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	s.nextID++
	n.ID = s.nextID
	s.created = append(s.created, n)
	return true, nil
}

func (s *fakeNotificationStore) byType(t model.NotificationType) []*model.Notification {
	var out []*model.Notification
	for _, n := range s.created {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestSweeper(tasks *fakeTaskStore, leads *fakeLeadStore, notifs *fakeNotificationStore, rules []StaleLeadRule) *Sweeper {
	return NewSweeper(tasks, leads, notifs, rules, zap.NewNop())
}

func TestMarkOverdueTasks(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 1, Title: "Call back", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 14), AssignedTo: 1},
		{ID: 2, Title: "Send quote", Status: model.TaskStatusDone, DueDate: date(2024, 3, 10), AssignedTo: 1},
		{ID: 3, Title: "Demo prep", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 15), AssignedTo: 2},
	}}
	s := newTestSweeper(tasks, &fakeLeadStore{}, newFakeNotificationStore(), nil)

	count, err := s.MarkOverdueTasks(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, model.TaskStatusOverdue, tasks.tasks[0].Status)
	assert.Equal(t, model.TaskStatusDone, tasks.tasks[1].Status, "done tasks must not be touched")
	assert.Equal(t, model.TaskStatusInProgress, tasks.tasks[2].Status, "due today is not overdue")

	// Re-running with the same now is a no-op.
	count, err = s.MarkOverdueTasks(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAlertOverdueTasksCreatesOnePerTaskPerDay(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 10, Title: "Call back", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 14), AssignedTo: 1},
	}}
	notifs := newFakeNotificationStore()
	s := newTestSweeper(tasks, &fakeLeadStore{}, notifs, nil)

	require.NoError(t, s.AlertOverdueTasks(context.Background(), now))
	require.NoError(t, s.AlertOverdueTasks(context.Background(), now))

	created := notifs.byType(model.NotificationTypeTaskOverdue)
	require.Len(t, created, 1, "second run the same day must not duplicate")
	n := created[0]
	assert.Equal(t, int64(1), n.UserID)
	assert.Equal(t, int64(10), n.EntityID)
	assert.Equal(t, int64(10), n.Payload["task_id"])
	assert.Equal(t, 1, n.Payload["days_overdue"])
	assert.Equal(t, model.ReasonTaskOverdue, n.Payload["reason"])
	assert.Contains(t, n.Content, "Call back")
	assert.Contains(t, n.Content, "1 day overdue")
}

func TestMarkThenAlertScenario(t *testing.T) {
	// Task due yesterday, IN_PROGRESS, assigned to U1: after the marker and
	// the alerter, status is OVERDUE and exactly one TASK_OVERDUE exists.
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 7, Title: "Follow up", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 14), AssignedTo: 1},
	}}
	notifs := newFakeNotificationStore()
	s := newTestSweeper(tasks, &fakeLeadStore{}, notifs, nil)

	_, err := s.MarkOverdueTasks(context.Background(), now)
	require.NoError(t, err)
	require.NoError(t, s.AlertOverdueTasks(context.Background(), now))

	assert.Equal(t, model.TaskStatusOverdue, tasks.tasks[0].Status)
	created := notifs.byType(model.NotificationTypeTaskOverdue)
	require.Len(t, created, 1)
	assert.Equal(t, int64(7), created[0].Payload["task_id"])
	assert.Equal(t, 1, created[0].Payload["days_overdue"])
}

func TestNotifyDueSoonWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 1, Title: "Due today", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 15), AssignedTo: 1},
		{ID: 2, Title: "Due tomorrow", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 16), AssignedTo: 1},
		{ID: 3, Title: "Due later", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 17), AssignedTo: 1},
		{ID: 4, Title: "Already done", Status: model.TaskStatusDone, DueDate: date(2024, 3, 15), AssignedTo: 1},
	}}
	notifs := newFakeNotificationStore()
	s := newTestSweeper(tasks, &fakeLeadStore{}, notifs, nil)

	require.NoError(t, s.NotifyDueSoonTasks(context.Background(), now))

	created := notifs.byType(model.NotificationTypeTaskDueSoon)
	require.Len(t, created, 2)
	ids := []int64{created[0].EntityID, created[1].EntityID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
	for _, n := range created {
		assert.Equal(t, model.ReasonTaskDueSoon, n.Payload["reason"])
	}
}

func TestAlertStaleLeads(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	u2 := int64(2)
	owner := int64(9)
	fourDaysAgo := now.AddDate(0, 0, -4)

	tests := []struct {
		name      string
		lead      model.Lead
		rule      StaleLeadRule
		wantCount int
		check     func(t *testing.T, n *model.Notification)
	}{
		{
			name:      "lead inactive past threshold",
			lead:      model.Lead{ID: 1, FullName: "Dana Reyes", Status: model.LeadStatusLead, LastActivityAt: &fourDaysAgo, AssignedTo: &u2},
			rule:      StaleLeadRule{Status: model.LeadStatusLead, InactivityDays: 3, Reason: model.ReasonLeadNoActivity3d},
			wantCount: 1,
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, u2, n.UserID)
				assert.Equal(t, model.ReasonLeadNoActivity3d, n.Payload["reason"])
				assert.Equal(t, 4, n.Payload["days_since_activity"])
			},
		},
		{
			name:      "null activity falls back to owner",
			lead:      model.Lead{ID: 2, FullName: "Sam Okafor", Status: model.LeadStatusCaring, OwnerID: &owner},
			rule:      StaleLeadRule{Status: model.LeadStatusCaring, InactivityDays: 7, Reason: model.ReasonCaringNoActivity7d},
			wantCount: 1,
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, owner, n.UserID)
				assert.Equal(t, model.ReasonCaringNoActivity7d, n.Payload["reason"])
				_, hasDays := n.Payload["days_since_activity"]
				assert.False(t, hasDays, "no days_since_activity without recorded activity")
				assert.Contains(t, n.Content, "no recorded activity")
			},
		},
		{
			name:      "no assignee and no owner produces nothing",
			lead:      model.Lead{ID: 3, FullName: "Orphan Lead", Status: model.LeadStatusCaring},
			rule:      StaleLeadRule{Status: model.LeadStatusCaring, InactivityDays: 7, Reason: model.ReasonCaringNoActivity7d},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifs := newFakeNotificationStore()
			leads := &fakeLeadStore{leads: []model.Lead{tt.lead}}
			s := newTestSweeper(&fakeTaskStore{}, leads, notifs, nil)

			require.NoError(t, s.AlertStaleLeads(context.Background(), now, tt.rule))

			created := notifs.byType(model.NotificationTypeNoFollowUp)
			require.Len(t, created, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.lead.ID, created[0].EntityID)
				assert.Equal(t, tt.lead.ID, created[0].Payload["lead_id"])
				tt.check(t, created[0])
			}
		})
	}
}

func TestAlertStaleLeadsOncePerDay(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	u1 := int64(1)
	old := now.AddDate(0, 0, -10)
	leads := &fakeLeadStore{leads: []model.Lead{
		{ID: 5, FullName: "Kim Tran", Status: model.LeadStatusCaring, LastActivityAt: &old, AssignedTo: &u1},
	}}
	notifs := newFakeNotificationStore()
	rule := StaleLeadRule{Status: model.LeadStatusCaring, InactivityDays: 7, Reason: model.ReasonCaringNoActivity7d}
	s := newTestSweeper(&fakeTaskStore{}, leads, notifs, nil)

	require.NoError(t, s.AlertStaleLeads(context.Background(), now, rule))
	require.NoError(t, s.AlertStaleLeads(context.Background(), now.Add(2*time.Hour), rule))

	assert.Len(t, notifs.byType(model.NotificationTypeNoFollowUp), 1)

	// A new calendar day starts a new dedup window.
	require.NoError(t, s.AlertStaleLeads(context.Background(), now.AddDate(0, 0, 1), rule))
	assert.Len(t, notifs.byType(model.NotificationTypeNoFollowUp), 2)
}

func TestFullSweepIsIdempotentWithinDay(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	u1, u2 := int64(1), int64(2)
	old := now.AddDate(0, 0, -9)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 1, Title: "Overdue", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 13), AssignedTo: u1},
		{ID: 2, Title: "Due soon", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 15), AssignedTo: u2},
	}}
	leads := &fakeLeadStore{leads: []model.Lead{
		{ID: 3, FullName: "Kim Tran", Status: model.LeadStatusCaring, LastActivityAt: &old, AssignedTo: &u1},
	}}
	notifs := newFakeNotificationStore()
	rules := []StaleLeadRule{
		{Status: model.LeadStatusCaring, InactivityDays: 7, Reason: model.ReasonCaringNoActivity7d},
		{Status: model.LeadStatusLead, InactivityDays: 3, Reason: model.ReasonLeadNoActivity3d},
	}
	s := newTestSweeper(tasks, leads, notifs, rules)

	require.NoError(t, s.RunTaskSweep(context.Background(), now))
	require.NoError(t, s.RunLeadSweep(context.Background(), now))
	firstCount := len(notifs.created)
	require.Equal(t, 3, firstCount)

	require.NoError(t, s.RunTaskSweep(context.Background(), now.Add(5*time.Minute)))
	require.NoError(t, s.RunLeadSweep(context.Background(), now.Add(5*time.Minute)))
	assert.Equal(t, firstCount, len(notifs.created), "second run must not change the notification count")
}

func TestPerRecordFailureDoesNotAbortBatch(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTaskStore{tasks: []model.Task{
		{ID: 1, Title: "Poisoned", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 13), AssignedTo: 1},
		{ID: 2, Title: "Healthy", Status: model.TaskStatusInProgress, DueDate: date(2024, 3, 13), AssignedTo: 2},
	}}
	notifs := newFakeNotificationStore()
	notifs.failFor[1] = errors.New("malformed payload")
	s := newTestSweeper(tasks, &fakeLeadStore{}, notifs, nil)

	require.NoError(t, s.AlertOverdueTasks(context.Background(), now))

	created := notifs.byType(model.NotificationTypeTaskOverdue)
	require.Len(t, created, 1)
	assert.Equal(t, int64(2), created[0].EntityID)
}

func TestStoreUnavailableAbortsRun(t *testing.T) {
	storeErr := errors.New("connection refused")
	tasks := &fakeTaskStore{listErr: storeErr}
	s := newTestSweeper(tasks, &fakeLeadStore{listErr: storeErr}, newFakeNotificationStore(), []StaleLeadRule{
		{Status: model.LeadStatusCaring, InactivityDays: 7, Reason: model.ReasonCaringNoActivity7d},
	})

	err := s.RunTaskSweep(context.Background(), time.Now())
	assert.ErrorIs(t, err, storeErr)

	err = s.RunLeadSweep(context.Background(), time.Now())
	assert.ErrorIs(t, err, storeErr)
}
