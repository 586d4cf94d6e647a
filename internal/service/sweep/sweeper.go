package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crmsweep/internal/model"
	"crmsweep/pkg/logger"
	"crmsweep/pkg/metrics"
)

// StaleLeadRule parameterizes one instance of the no-follow-up check.
type StaleLeadRule struct {
	Status         model.LeadStatus
	InactivityDays int
	Reason         string
}

// Sweeper evaluates the follow-up compliance rules against the record store
// and writes notifications. It holds no state across runs; every rule is a
// function of the explicit "now" and current store contents.
type Sweeper struct {
	tasks         TaskStore
	leads         LeadStore
	notifications NotificationStore
	leadRules     []StaleLeadRule
	logger        *zap.Logger
}

func NewSweeper(
	tasks TaskStore,
	leads LeadStore,
	notifications NotificationStore,
	leadRules []StaleLeadRule,
	log *zap.Logger,
) *Sweeper {
	return &Sweeper{
		tasks:         tasks,
		leads:         leads,
		notifications: notifications,
		leadRules:     leadRules,
		logger:        log,
	}
}

// RunTaskSweep runs the due/overdue task rules once. A failing rule is logged
// and the remaining rules still run; the last error is returned so the
// scheduler can surface it.
func (s *Sweeper) RunTaskSweep(ctx context.Context, now time.Time) error {
	start := time.Now()
	log := logger.WithTrace(ctx, s.logger)
	log.Info("Running task sweep", zap.Time("now", now))

	var lastErr error
	if _, err := s.MarkOverdueTasks(ctx, now); err != nil {
		log.Error("Overdue marker failed", zap.Error(err))
		lastErr = err
	}
	if err := s.NotifyDueSoonTasks(ctx, now); err != nil {
		log.Error("Due-soon notifier failed", zap.Error(err))
		lastErr = err
	}
	if err := s.AlertOverdueTasks(ctx, now); err != nil {
		log.Error("Overdue alerter failed", zap.Error(err))
		lastErr = err
	}

	metrics.RecordSweepRun("tasks", time.Since(start))
	log.Info("Task sweep completed", zap.Duration("duration", time.Since(start)))
	return lastErr
}

// RunLeadSweep runs every configured stale-lead rule once.
func (s *Sweeper) RunLeadSweep(ctx context.Context, now time.Time) error {
	start := time.Now()
	log := logger.WithTrace(ctx, s.logger)
	log.Info("Running lead sweep", zap.Time("now", now))

	var lastErr error
	for _, rule := range s.leadRules {
		if err := s.AlertStaleLeads(ctx, now, rule); err != nil {
			log.Error("Stale-lead alerter failed",
				zap.String("status", string(rule.Status)),
				zap.Error(err),
			)
			lastErr = err
		}
	}

	metrics.RecordSweepRun("leads", time.Since(start))
	log.Info("Lead sweep completed", zap.Duration("duration", time.Since(start)))
	return lastErr
}

// MarkOverdueTasks sets status OVERDUE on every task due before today that is
// not DONE. Pure status write; no notification is created here. Idempotent:
// already-OVERDUE rows are excluded from the update predicate.
func (s *Sweeper) MarkOverdueTasks(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.tasks.MarkOverdue(ctx, startOfDay(now))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.WithTrace(ctx, s.logger).Info("Marked overdue tasks",
			zap.Int64("count", count),
		)
	}
	return count, nil
}

// NotifyDueSoonTasks alerts assignees of IN_PROGRESS tasks due today or
// tomorrow. due_date is date-only, so the window is two calendar days rather
// than a clock interval. Dedup key is (assignee, TASK_DUE_SOON, task, day).
func (s *Sweeper) NotifyDueSoonTasks(ctx context.Context, now time.Time) error {
	today := startOfDay(now)
	tasks, err := s.tasks.ListDueSoon(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	log := logger.WithTrace(ctx, s.logger)
	for _, task := range tasks {
		n := &model.Notification{
			UserID:   task.AssignedTo,
			Type:     model.NotificationTypeTaskDueSoon,
			EntityID: task.ID,
			Content:  dueSoonTaskMessage(task.Title, task.DueDate),
			Payload: map[string]any{
				"task_id":  task.ID,
				"due_date": task.DueDate.Format("2006-01-02"),
				"reason":   model.ReasonTaskDueSoon,
			},
			CreatedAt: now,
		}
		s.createNotification(ctx, log, "tasks", n)
	}

	log.Info("Due-soon check completed", zap.Int("candidates", len(tasks)))
	return nil
}

// AlertOverdueTasks notifies assignees of tasks past their due date. At most
// one TASK_OVERDUE notification per task per calendar day, however many times
// the sweep runs.
func (s *Sweeper) AlertOverdueTasks(ctx context.Context, now time.Time) error {
	tasks, err := s.tasks.ListOverdue(ctx, startOfDay(now))
	if err != nil {
		return err
	}

	log := logger.WithTrace(ctx, s.logger)
	for _, task := range tasks {
		daysOverdue := daysBetween(task.DueDate, now)
		n := &model.Notification{
			UserID:   task.AssignedTo,
			Type:     model.NotificationTypeTaskOverdue,
			EntityID: task.ID,
			Content:  overdueTaskMessage(task.Title, daysOverdue),
			Payload: map[string]any{
				"task_id":      task.ID,
				"days_overdue": daysOverdue,
				"reason":       model.ReasonTaskOverdue,
			},
			CreatedAt: now,
		}
		s.createNotification(ctx, log, "tasks", n)
	}

	log.Info("Overdue alert check completed", zap.Int("candidates", len(tasks)))
	return nil
}

// AlertStaleLeads notifies the responsible user of leads in rule.Status with
// no activity inside the rule's window. Recipient is the assignee, falling
// back to the owner; leads with neither are skipped. days_since_activity is
// only present in the payload when the lead has recorded activity at all.
func (s *Sweeper) AlertStaleLeads(ctx context.Context, now time.Time, rule StaleLeadRule) error {
	cutoff := now.AddDate(0, 0, -rule.InactivityDays)
	leads, err := s.leads.ListStale(ctx, rule.Status, cutoff)
	if err != nil {
		return err
	}

	log := logger.WithTrace(ctx, s.logger)
	skipped := 0
	for _, lead := range leads {
		userID, ok := lead.Recipient()
		if !ok {
			skipped++
			log.Debug("Stale lead has no recipient, skipping",
				zap.Int64("lead_id", lead.ID),
			)
			continue
		}

		var daysSince *int
		payload := map[string]any{
			"lead_id": lead.ID,
			"reason":  rule.Reason,
		}
		if lead.LastActivityAt != nil {
			d := daysBetween(*lead.LastActivityAt, now)
			daysSince = &d
			payload["days_since_activity"] = d
		}

		n := &model.Notification{
			UserID:    userID,
			Type:      model.NotificationTypeNoFollowUp,
			EntityID:  lead.ID,
			Content:   staleLeadMessage(lead.FullName, daysSince),
			Payload:   payload,
			CreatedAt: now,
		}
		s.createNotification(ctx, log, "leads", n)
	}

	log.Info("Stale-lead check completed",
		zap.String("status", string(rule.Status)),
		zap.Int("candidates", len(leads)),
		zap.Int("skipped_no_recipient", skipped),
	)
	return nil
}

// createNotification writes one notification, treating any failure as a
// per-record problem: logged, counted, and skipped so the rest of the batch
// still runs. The next scheduled run retries anything still matching.
func (s *Sweeper) createNotification(ctx context.Context, log *zap.Logger, sweepName string, n *model.Notification) {
	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		metrics.IncrementRecordFailure(sweepName)
		log.Error("Failed to create notification",
			zap.Int64("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Int64("entity_id", n.EntityID),
			zap.Error(err),
		)
		return
	}

	if created {
		metrics.IncrementNotificationCreated(string(n.Type))
	} else {
		metrics.IncrementNotificationSuppressed(string(n.Type))
	}
}
