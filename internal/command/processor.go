// Package command implements the textual command surface reachable over the
// inbound ntfy topic.
package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/service"
)

var (
	upcomingRe   = regexp.MustCompile(`upcoming\s+(\d+)`)
	completeRe   = regexp.MustCompile(`(?:complete|done)[:\s]+(\d+)`)
	deleteRe     = regexp.MustCompile(`(?:delete|remove)[:\s]+(\d+)`)
	rescheduleRe = regexp.MustCompile(`reschedule[:\s]+(\d+)\s+to\s+(.+)`)
)

const helpText = `📚 Available Commands

📝 Add Task:
   add: call mom tomorrow at 3pm

📅 View Schedule:
   list  (or 'today')

⏰ Upcoming Tasks:
   upcoming  (or 'upcoming 4')

✅ Complete Task:
   complete: 15  (or 'done: 15')

🗑️ Delete Task:
   delete: 15

📅 Reschedule Task:
   reschedule: 15 to 5pm

❓ Help:
   help  (or 'commands')`

// Result is the outcome of one processed command.
type Result struct {
	OK      bool
	Message string
	TaskID  uint
}

// Processor routes inbound text commands to the task service. Throttling
// happens at the intake point, before a message reaches Process.
type Processor struct {
	manager *service.TaskService
	log     *zap.SugaredLogger
}

func NewProcessor(manager *service.TaskService, log *zap.SugaredLogger) *Processor {
	return &Processor{manager: manager, log: log}
}

// Process handles one inbound command from the given source.
func (p *Processor) Process(ctx context.Context, message, source string) Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{OK: false, Message: "Empty command received"}
	}

	p.log.Infow("processing command", "source", source, "command", truncate(message, 50))

	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, "add:"), strings.HasPrefix(lower, "add "):
		return p.handleAdd(ctx, message)
	case lower == "list", lower == "today", lower == "schedule":
		return p.handleList(ctx)
	case strings.HasPrefix(lower, "upcoming"):
		return p.handleUpcoming(ctx, lower)
	case hasAnyPrefix(lower, "complete:", "done:", "complete ", "done "):
		return p.handleComplete(ctx, lower)
	case hasAnyPrefix(lower, "delete:", "remove:", "delete ", "remove "):
		return p.handleDelete(ctx, lower)
	case hasAnyPrefix(lower, "reschedule:", "reschedule "):
		return p.handleReschedule(ctx, lower)
	case lower == "help", lower == "commands", lower == "?":
		return Result{OK: true, Message: helpText}
	default:
		p.log.Warnw("unknown command", "command", truncate(message, 50))
		return Result{OK: false, Message: "❌ Unknown command. Send 'help' for available commands."}
	}
}

func (p *Processor) handleAdd(ctx context.Context, message string) Result {
	var description string
	if idx := strings.Index(message, ":"); idx >= 0 {
		description = strings.TrimSpace(message[idx+1:])
	} else if idx := strings.Index(message, " "); idx >= 0 {
		description = strings.TrimSpace(message[idx+1:])
	}
	if description == "" {
		return Result{OK: false, Message: "❌ Please provide a task description\nExample: add: call mom tomorrow at 3pm"}
	}

	task, err := p.manager.AddNatural(ctx, description, "", nil)
	if err != nil {
		p.log.Errorw("add task", "err", err)
		return Result{OK: false, Message: "❌ Could not parse task description. Try: 'add: task description tomorrow at 3pm'"}
	}

	response := fmt.Sprintf("✅ Added: %s", task.Title)
	if task.ScheduledTime != nil {
		response += fmt.Sprintf("\n📅 %s", task.ScheduledTime.Format("Mon Jan 02 at 3:04 PM"))
	}
	return Result{OK: true, Message: response, TaskID: task.ID}
}

func (p *Processor) handleList(ctx context.Context) Result {
	tasks, err := p.manager.TasksForDay(ctx, p.manager.Now(), 0)
	if err != nil {
		p.log.Errorw("daily summary", "err", err)
		return Result{OK: false, Message: fmt.Sprintf("❌ Error getting schedule: %v", err)}
	}
	return Result{OK: true, Message: service.DailySummaryBody(tasks)}
}

func (p *Processor) handleUpcoming(ctx context.Context, message string) Result {
	hoursAhead := 4
	if m := upcomingRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			hoursAhead = n
		}
	}
	if hoursAhead < 1 {
		hoursAhead = 1
	} else if hoursAhead > 24 {
		hoursAhead = 24
	}

	tasks, err := p.manager.UpcomingTasks(ctx, hoursAhead)
	if err != nil {
		p.log.Errorw("upcoming tasks", "err", err)
		return Result{OK: false, Message: fmt.Sprintf("❌ Error getting upcoming tasks: %v", err)}
	}

	if len(tasks) == 0 {
		plural := ""
		if hoursAhead > 1 {
			plural = "s"
		}
		return Result{OK: true, Message: fmt.Sprintf("📋 No tasks in the next %d hour%s\n\nYou're all clear! ✨", hoursAhead, plural)}
	}

	now := p.manager.Now()
	parts := []string{fmt.Sprintf("📋 Upcoming (%dh)\n", hoursAhead)}
	for _, task := range tasks {
		if task.ScheduledTime == nil {
			continue
		}
		until := task.ScheduledTime.Sub(now)
		hours := int(until.Hours())
		minutes := int(until.Minutes()) % 60
		var desc string
		switch {
		case hours > 0:
			desc = fmt.Sprintf("in %dh %dm", hours, minutes)
		case minutes > 0:
			desc = fmt.Sprintf("in %dm", minutes)
		default:
			desc = "now"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)\n   %s", task.ScheduledTime.Format("3:04 PM"), desc, task.Title))
	}
	return Result{OK: true, Message: strings.Join(parts, "\n")}
}

func (p *Processor) handleComplete(ctx context.Context, message string) Result {
	taskID, ok := extractID(completeRe, message)
	if !ok {
		return Result{OK: false, Message: "❌ Please specify task ID\nExample: complete: 15"}
	}

	task, err := p.manager.Complete(ctx, taskID)
	if err != nil {
		p.log.Errorw("complete task", "task_id", taskID, "err", err)
		return Result{OK: false, Message: fmt.Sprintf("❌ Task %d not found", taskID)}
	}
	return Result{OK: true, Message: fmt.Sprintf("✅ Completed: %s", task.Title), TaskID: taskID}
}

func (p *Processor) handleDelete(ctx context.Context, message string) Result {
	taskID, ok := extractID(deleteRe, message)
	if !ok {
		return Result{OK: false, Message: "❌ Please specify task ID\nExample: delete: 15"}
	}

	task, err := p.manager.Get(ctx, taskID)
	if err != nil {
		return Result{OK: false, Message: fmt.Sprintf("❌ Task %d not found", taskID)}
	}
	if err := p.manager.Delete(ctx, taskID); err != nil {
		p.log.Errorw("delete task", "task_id", taskID, "err", err)
		return Result{OK: false, Message: fmt.Sprintf("❌ Error deleting task: %v", err)}
	}
	return Result{OK: true, Message: fmt.Sprintf("🗑️ Deleted: %s", task.Title), TaskID: taskID}
}

func (p *Processor) handleReschedule(ctx context.Context, message string) Result {
	m := rescheduleRe.FindStringSubmatch(message)
	if m == nil {
		return Result{OK: false, Message: "❌ Invalid format\nExample: reschedule: 15 to tomorrow at 3pm"}
	}
	taskID64, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Result{OK: false, Message: "❌ Invalid task ID"}
	}
	taskID := uint(taskID64)

	task, err := p.manager.Reschedule(ctx, taskID, strings.TrimSpace(m[2]))
	if err != nil {
		p.log.Errorw("reschedule task", "task_id", taskID, "err", err)
		return Result{OK: false, Message: fmt.Sprintf("❌ %v", err)}
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("📅 Rescheduled: %s\n🕐 New time: %s", task.Title, task.ScheduledTime.Format("Mon Jan 02 at 3:04 PM")),
		TaskID:  taskID,
	}
}

func extractID(re *regexp.Regexp, message string) (uint, bool) {
	m := re.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
