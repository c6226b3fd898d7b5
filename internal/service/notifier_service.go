package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/model"
	"github.com/ngrabbs/schedule-manager/internal/ntfy"
)

// NotifierService composes and sends the tool's push notifications. Sends
// are best effort: a relay failure is logged and reported as an empty
// message id, never an error.
type NotifierService struct {
	client *ntfy.Client
	// apiBaseURL, when set, is where reminder action buttons point.
	apiBaseURL string
	log        *zap.SugaredLogger
}

func NewNotifierService(client *ntfy.Client, apiBaseURL string, log *zap.SugaredLogger) *NotifierService {
	return &NotifierService{client: client, apiBaseURL: apiBaseURL, log: log}
}

// Send publishes a raw message, returning the relay id or "" on failure.
func (s *NotifierService) Send(ctx context.Context, msg ntfy.Message) string {
	id, err := s.client.Publish(ctx, msg)
	if err != nil {
		s.log.Errorw("send notification", "title", msg.Title, "err", err)
		return ""
	}
	return id
}

// SendTaskReminder pushes a reminder for a task due in minutesBefore
// minutes (or due now, for zero).
func (s *NotifierService) SendTaskReminder(ctx context.Context, task *model.Task, minutesBefore int) string {
	timeStr := task.ScheduledTime.Format("3:04 PM")

	var title, body string
	if minutesBefore > 0 {
		title = fmt.Sprintf("⏰ Reminder: %s", task.Title)
		body = fmt.Sprintf("Starting in %d minutes at %s", minutesBefore, timeStr)
	} else {
		title = fmt.Sprintf("📌 Now: %s", task.Title)
		body = fmt.Sprintf("Scheduled for %s", timeStr)
	}
	if task.Description != "" {
		body += "\n\n" + task.Description
	}

	tags := []string{"calendar", "alarm_clock"}
	if task.Priority == model.PriorityHigh {
		tags = append(tags, "warning")
	}

	var actions []ntfy.Action
	if s.apiBaseURL != "" {
		actions = []ntfy.Action{
			{
				Action: "http",
				Label:  "✓ Done",
				URL:    fmt.Sprintf("%s/api/tasks/%d/complete", s.apiBaseURL, task.ID),
				Method: "POST",
			},
			{
				Action: "http",
				Label:  "Snooze 15m",
				URL:    fmt.Sprintf("%s/api/tasks/%d/snooze", s.apiBaseURL, task.ID),
				Method: "POST",
			},
		}
	}

	return s.Send(ctx, ntfy.Message{
		Title:    title,
		Body:     body,
		Priority: task.Priority,
		Tags:     tags,
		Actions:  actions,
	})
}

// SendDailySummary pushes the day's schedule.
func (s *NotifierService) SendDailySummary(ctx context.Context, date time.Time, tasks []model.Task) string {
	return s.Send(ctx, ntfy.Message{
		Title:    fmt.Sprintf("📅 %s", date.Format("Monday, January 02")),
		Body:     DailySummaryBody(tasks),
		Priority: model.PriorityMedium,
		Tags:     []string{"calendar", "sunrise"},
	})
}

// SendUpcomingSummary pushes the tasks due within the next hoursAhead hours.
func (s *NotifierService) SendUpcomingSummary(ctx context.Context, tasks []model.Task, hoursAhead int, now time.Time) string {
	return s.Send(ctx, ntfy.Message{
		Title:    fmt.Sprintf("📋 Upcoming (%dh)", hoursAhead),
		Body:     upcomingSummaryBody(tasks, now),
		Priority: model.PriorityLow,
		Tags:     []string{"calendar", "information_source"},
	})
}

// SendTest verifies the relay is reachable.
func (s *NotifierService) SendTest(ctx context.Context) string {
	return s.Send(ctx, ntfy.Message{
		Title:    "✅ Schedule Manager Connected",
		Body:     "Your schedule manager is up and running. You'll receive notifications here.",
		Priority: model.PriorityLow,
		Tags:     []string{"white_check_mark", "rocket"},
	})
}

// SendIPChange announces a public IP change (oldIP empty on first run).
func (s *NotifierService) SendIPChange(ctx context.Context, newIP, oldIP string) string {
	var body string
	if oldIP == "" {
		body = fmt.Sprintf("Public IP recorded: %s", newIP)
	} else {
		body = fmt.Sprintf("Public IP changed: %s → %s", oldIP, newIP)
	}
	return s.Send(ctx, ntfy.Message{
		Title:    "🌐 IP Address Update",
		Body:     body,
		Priority: model.PriorityMedium,
		Tags:     []string{"globe_with_meridians"},
	})
}

// SendCommandResponse pushes the outcome of an inbound command back to the
// user.
func (s *NotifierService) SendCommandResponse(ctx context.Context, body string) string {
	return s.Send(ctx, ntfy.Message{
		Title:    "Schedule Manager",
		Body:     body,
		Priority: model.PriorityLow,
		Tags:     []string{"speech_balloon"},
	})
}

// DailySummaryBody renders the day's pending tasks. Shared by the daily
// summary push and the "list" command.
func DailySummaryBody(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "No tasks scheduled for today. Enjoy your free time! 🎉"
	}

	var b strings.Builder
	b.WriteString("Here's your day:\n\n")
	totalDuration := 0
	for _, task := range tasks {
		timeStr := "Unscheduled"
		if task.ScheduledTime != nil {
			timeStr = task.ScheduledTime.Format("3:04 PM")
		}
		totalDuration += task.Duration
		b.WriteString(fmt.Sprintf("%s %s - %s (%dmin)\n", priorityEmoji(task.Priority), timeStr, task.Title, task.Duration))
	}

	// Free time assumes an 8 hour workday.
	const workMinutes = 8 * 60
	if free := workMinutes - totalDuration; free > 0 {
		b.WriteString(fmt.Sprintf("\n💡 Scheduled time: %dmin | Free time: %dh %dm", totalDuration, free/60, free%60))
	}
	return b.String()
}

func upcomingSummaryBody(tasks []model.Task, now time.Time) string {
	if len(tasks) == 0 {
		return "No tasks scheduled in the next few hours. You're all clear! ✨"
	}

	var b strings.Builder
	b.WriteString("Coming up:\n\n")
	for _, task := range tasks {
		if task.ScheduledTime == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s (%s) - %s\n",
			priorityEmoji(task.Priority),
			task.ScheduledTime.Format("3:04 PM"),
			untilDesc(now, *task.ScheduledTime),
			task.Title))
	}
	return b.String()
}

func untilDesc(now, at time.Time) string {
	until := at.Sub(now)
	hours := int(until.Hours())
	minutes := int(until.Minutes()) % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("in %dm", minutes)
	default:
		return "now"
	}
}

func priorityEmoji(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}
