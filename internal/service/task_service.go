package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/model"
	"github.com/ngrabbs/schedule-manager/internal/nlp"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

// titleMarkers are stripped from a description to derive the task title.
// Each marker is applied left to right against the current remainder; the
// cascade order itself is the documented convention.
var titleMarkers = []string{" at ", " tomorrow", " next", " this"}

const maxTitleLen = 100

// TaskInput represents data for an explicitly specified task.
type TaskInput struct {
	Title          string
	Description    string
	ScheduledTime  *time.Time
	Duration       int
	Priority       string
	Tags           []string
	IsRecurring    bool
	RecurrenceRule *model.RecurrenceRule
}

// TaskService owns task lifecycle and the reminder scheduling policy.
type TaskService struct {
	tasks         *repository.TaskRepository
	notifications *repository.NotificationRepository
	parser        *nlp.Parser
	// offsets are the configured minutes-before lead times, order and
	// duplicates preserved.
	offsets []int
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewTaskService(
	tasks *repository.TaskRepository,
	notifications *repository.NotificationRepository,
	parser *nlp.Parser,
	reminderMinutesBefore []int,
	log *zap.SugaredLogger,
) *TaskService {
	return &TaskService{
		tasks:         tasks,
		notifications: notifications,
		parser:        parser,
		offsets:       reminderMinutesBefore,
		now:           func() time.Time { return time.Now().In(parser.Location()) },
		log:           log,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// AddNatural creates a task from a free-text description, extracting the
// schedule time, duration, and recurrence. A description with no resolvable
// time still yields a valid, unscheduled task.
func (s *TaskService) AddNatural(ctx context.Context, description, priority string, tags []string) (*model.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if priority == "" {
		priority = model.PriorityMedium
	}

	var scheduledTime *time.Time
	if t, ok := s.parser.ParseTime(description, s.now()); ok {
		scheduledTime = &t
	}
	rule := s.parser.ParseRecurrence(description)

	task := model.Task{
		Title:          DeriveTitle(description),
		Description:    description,
		ScheduledTime:  scheduledTime,
		Duration:       s.parser.ParseDuration(description),
		Priority:       priority,
		Status:         model.StatusPending,
		Tags:           tags,
		IsRecurring:    rule != nil,
		RecurrenceRule: rule,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	if task.ScheduledTime != nil {
		if err := s.ScheduleReminders(ctx, task.ID, *task.ScheduledTime, task.Priority); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

// Add creates a task with explicit parameters. Used by the recurring
// materialization job and the CLI.
func (s *TaskService) Add(ctx context.Context, input TaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.Duration <= 0 {
		input.Duration = 30
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}

	task := model.Task{
		Title:          truncateTitle(input.Title),
		Description:    input.Description,
		ScheduledTime:  input.ScheduledTime,
		Duration:       input.Duration,
		Priority:       input.Priority,
		Status:         model.StatusPending,
		Tags:           input.Tags,
		IsRecurring:    input.IsRecurring,
		RecurrenceRule: input.RecurrenceRule,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	if task.ScheduledTime != nil {
		if err := s.ScheduleReminders(ctx, task.ID, *task.ScheduledTime, task.Priority); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

// ScheduleReminders persists a reminder for every configured minutes-before
// offset that lands strictly in the future. Past offsets are skipped
// silently; duplicate offsets produce duplicate reminders.
func (s *TaskService) ScheduleReminders(ctx context.Context, taskID uint, scheduledTime time.Time, priority string) error {
	now := s.now()
	for _, minutesBefore := range s.offsets {
		fireAt := scheduledTime.Add(-time.Duration(minutesBefore) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		id := taskID
		n := model.Notification{
			TaskID: &id,
			FireAt: fireAt,
			Type:   model.NotificationReminder,
		}
		if err := s.notifications.Create(ctx, &n); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, taskID uint) (*model.Task, error) {
	return s.tasks.FindByID(ctx, taskID)
}

// Update applies a partial update to a task.
func (s *TaskService) Update(ctx context.Context, taskID uint, update model.TaskUpdate) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	update.Apply(task)
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Reschedule moves a task to a time parsed from free text, then reconciles
// its reminders: unsent ones are dropped and a fresh set is generated from
// the new time. Sent reminders stay as an audit trail.
func (s *TaskService) Reschedule(ctx context.Context, taskID uint, newTimeText string) (*model.Task, error) {
	newTime, ok := s.parser.ParseTime(newTimeText, s.now())
	if !ok {
		return nil, fmt.Errorf("could not parse time from %q", newTimeText)
	}
	return s.RescheduleAt(ctx, taskID, newTime)
}

// RescheduleAt moves a task to an explicit time with the same reminder
// reconciliation as Reschedule.
func (s *TaskService) RescheduleAt(ctx context.Context, taskID uint, newTime time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.ScheduledTime = &newTime
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}

	if err := s.notifications.DeleteUnsentForTask(ctx, taskID); err != nil {
		return nil, err
	}
	if err := s.ScheduleReminders(ctx, taskID, newTime, task.Priority); err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task completed.
func (s *TaskService) Complete(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	task.Status = model.StatusCompleted
	task.CompletedAt = &now
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task and, through the storage cascade, every one of its
// notifications, sent or not.
func (s *TaskService) Delete(ctx context.Context, taskID uint) error {
	return s.tasks.Delete(ctx, taskID)
}

// TasksForDay returns pending tasks scheduled on the given day plus the
// daysAhead following days.
func (s *TaskService) TasksForDay(ctx context.Context, date time.Time, daysAhead int) ([]model.Task, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, daysAhead+1)
	return s.tasks.List(ctx, repository.TaskFilter{
		Status: model.StatusPending,
		From:   &start,
		To:     &end,
	})
}

// UpcomingTasks returns pending tasks scheduled within the next hoursAhead
// hours.
func (s *TaskService) UpcomingTasks(ctx context.Context, hoursAhead int) ([]model.Task, error) {
	now := s.now()
	end := now.Add(time.Duration(hoursAhead) * time.Hour)
	return s.tasks.List(ctx, repository.TaskFilter{
		Status: model.StatusPending,
		From:   &now,
		To:     &end,
	})
}

// Now exposes the service clock, for collaborators that must agree with it.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// DeriveTitle truncates a description at the marker cascade and hard-caps
// the result at 100 characters.
func DeriveTitle(description string) string {
	title := description
	for _, marker := range titleMarkers {
		if idx := strings.Index(title, marker); idx >= 0 {
			title = title[:idx]
		}
	}
	return truncateTitle(strings.TrimSpace(title))
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen])
	}
	return title
}
