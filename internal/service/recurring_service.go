package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/nlp"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

// RecurringService materializes recurring task templates once per day:
// every template whose rule covers tomorrow's weekday gets a concrete
// non-recurring instance at the rule's time. Templates without a time, and
// the templates themselves, are never touched.
type RecurringService struct {
	tasks       *repository.TaskRepository
	taskService *TaskService
	log         *zap.SugaredLogger
}

func NewRecurringService(tasks *repository.TaskRepository, taskService *TaskService, log *zap.SugaredLogger) *RecurringService {
	return &RecurringService{tasks: tasks, taskService: taskService, log: log}
}

// Materialize creates tomorrow's instances relative to now.
func (s *RecurringService) Materialize(ctx context.Context, now time.Time) {
	templates, err := s.tasks.ListRecurring(ctx)
	if err != nil {
		s.log.Errorw("list recurring templates", "err", err)
		return
	}

	tomorrow := now.AddDate(0, 0, 1)
	weekday := nlp.WeekdayToken(tomorrow.Weekday())

	for _, template := range templates {
		rule := template.RecurrenceRule
		if rule == nil || !rule.Matches(weekday) || rule.Time == "" {
			continue
		}

		hour, minute, err := parseClock(rule.Time)
		if err != nil {
			s.log.Warnw("bad recurrence time", "task_id", template.ID, "time", rule.Time, "err", err)
			continue
		}
		scheduled := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, now.Location())

		instance, err := s.taskService.Add(ctx, TaskInput{
			Title:         template.Title,
			Description:   template.Description,
			ScheduledTime: &scheduled,
			Duration:      template.Duration,
			Priority:      template.Priority,
			Tags:          template.Tags,
		})
		if err != nil {
			s.log.Errorw("materialize recurring task", "task_id", template.ID, "err", err)
			continue
		}
		s.log.Infow("created recurring instance", "template_id", template.ID, "task_id", instance.ID, "at", scheduled)
	}
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
