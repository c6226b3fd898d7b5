// Package daemon wires the scheduler jobs, the inbound command listener,
// and the optional agent and HTTP API into one long-running process.
package daemon

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ngrabbs/schedule-manager/internal/agent"
	"github.com/ngrabbs/schedule-manager/internal/command"
	"github.com/ngrabbs/schedule-manager/internal/config"
	"github.com/ngrabbs/schedule-manager/internal/httpapi"
	"github.com/ngrabbs/schedule-manager/internal/nlp"
	"github.com/ngrabbs/schedule-manager/internal/ntfy"
	"github.com/ngrabbs/schedule-manager/internal/repository"
	"github.com/ngrabbs/schedule-manager/internal/service"
)

const (
	sweepInterval  = time.Minute
	upcomingWindow = 4 // hours
)

// Daemon is the assembled application.
type Daemon struct {
	cfg       config.Config
	loc       *time.Location
	scheduler *service.SchedulerService
	tasks     *service.TaskService
	notifier  *service.NotifierService
	delivery  *service.DeliveryService
	recurring *service.RecurringService
	ipMonitor *service.IPMonitorService
	processor *command.Processor
	limiter   *command.RateLimiter
	listener  *ntfy.Listener
	agent     agent.Agent
	api       *httpapi.Server
	log       *zap.SugaredLogger
}

// New builds the daemon from configuration and an open database.
func New(cfg config.Config, db *gorm.DB, log *zap.SugaredLogger) (*Daemon, error) {
	parser, err := nlp.NewParser(cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}
	loc := parser.Location()

	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	ipRepo := repository.NewIPRepository(db)

	client := ntfy.NewClient(cfg.Ntfy.Server, cfg.Ntfy.Topic, cfg.Ntfy.Priority)
	notifier := service.NewNotifierService(client, apiBaseURL(cfg), log)

	tasks := service.NewTaskService(taskRepo, notificationRepo, parser, cfg.Notifications.ReminderMinutesBefore, log)
	delivery := service.NewDeliveryService(taskRepo, notificationRepo, notifier, tasks.Now, log)
	recurring := service.NewRecurringService(taskRepo, tasks, log)

	d := &Daemon{
		cfg:       cfg,
		loc:       loc,
		scheduler: service.NewSchedulerService(loc, log),
		tasks:     tasks,
		notifier:  notifier,
		delivery:  delivery,
		recurring: recurring,
		log:       log,
	}

	if cfg.IPMonitor.Enabled {
		d.ipMonitor = service.NewIPMonitorService(ipRepo, notifier, cfg.IPMonitor.Services, log)
	}

	if cfg.Commands.Enabled {
		if cfg.Ntfy.CommandTopic == "" {
			return nil, fmt.Errorf("ntfy.command_topic is required when commands are enabled")
		}
		d.limiter = command.NewRateLimiter(cfg.Commands.RateLimitInterval(), nil)
		d.processor = command.NewProcessor(tasks, log)
		d.listener = ntfy.NewListener(cfg.Ntfy.Server, cfg.Ntfy.CommandTopic, d.onCommand, log)

		if cfg.Agent.Enabled {
			d.agent = agent.NewCLIAgent(cfg.Agent.Binary, cfg.Agent.AgentName, cfg.Agent.Model, cfg.Agent.CommandTimeout(), log)
		}
	}

	if cfg.API.Enabled {
		d.api = httpapi.NewServer(cfg.API.Addr, tasks, log)
	}

	return d, nil
}

func apiBaseURL(cfg config.Config) string {
	if !cfg.API.Enabled {
		return ""
	}
	return cfg.API.BaseURL
}

// Run starts every component and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.registerJobs(); err != nil {
		return err
	}

	if d.agent != nil {
		if err := d.agent.Start(ctx); err != nil {
			// Startup failure disables the agent; commands fall back to
			// the simple processor.
			d.log.Warnw("agent unavailable, using simple command processing", "err", err)
			d.agent = nil
		}
	}

	d.scheduler.Start()
	defer d.scheduler.Stop()

	if d.listener != nil {
		go d.listener.Run(ctx)
	}

	if d.api != nil {
		go func() {
			if err := d.api.Run(); err != nil {
				d.log.Errorw("http api stopped", "err", err)
			}
		}()
	}

	d.log.Infow("daemon started",
		"topic", d.cfg.Ntfy.Topic,
		"timezone", d.cfg.Schedule.Timezone,
		"commands", d.cfg.Commands.Enabled,
		"agent", d.agent != nil,
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if d.api != nil {
		if err := d.api.Shutdown(shutdownCtx); err != nil {
			d.log.Errorw("http api shutdown", "err", err)
		}
	}
	if d.agent != nil {
		if err := d.agent.Stop(shutdownCtx); err != nil {
			d.log.Errorw("agent shutdown", "err", err)
		}
	}

	d.log.Info("shutdown complete")
	return nil
}

func (d *Daemon) registerJobs() error {
	if _, err := d.scheduler.ScheduleInterval("delivery-sweep", sweepInterval, func() {
		d.jobCtx(d.delivery.Sweep)
	}); err != nil {
		return fmt.Errorf("schedule delivery sweep: %w", err)
	}

	if _, err := d.scheduler.ScheduleDaily("daily-summary", d.cfg.Notifications.DailySummaryTime, func() {
		d.jobCtx(d.sendDailySummary)
	}); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}

	if interval := d.cfg.Notifications.UpcomingSummaryIntervalMinutes; interval > 0 {
		if _, err := d.scheduler.ScheduleInterval("upcoming-summary", time.Duration(interval)*time.Minute, func() {
			d.jobCtx(d.sendUpcomingSummary)
		}); err != nil {
			return fmt.Errorf("schedule upcoming summary: %w", err)
		}
	}

	if _, err := d.scheduler.ScheduleDaily("recurring-tasks", "00:00", func() {
		d.jobCtx(func(ctx context.Context) {
			d.recurring.Materialize(ctx, d.tasks.Now())
		})
	}); err != nil {
		return fmt.Errorf("schedule recurring generation: %w", err)
	}

	if d.ipMonitor != nil {
		interval := time.Duration(d.cfg.IPMonitor.CheckIntervalMinutes) * time.Minute
		if _, err := d.scheduler.ScheduleInterval("ip-check", interval, func() {
			d.jobCtx(d.ipMonitor.CheckAndNotify)
		}); err != nil {
			return fmt.Errorf("schedule ip check: %w", err)
		}
	}

	return nil
}

// jobCtx gives each job run a bounded, self-contained context.
func (d *Daemon) jobCtx(job func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	job(ctx)
}

func (d *Daemon) sendDailySummary(ctx context.Context) {
	today := d.tasks.Now()
	tasks, err := d.tasks.TasksForDay(ctx, today, 0)
	if err != nil {
		d.log.Errorw("daily summary", "err", err)
		return
	}
	if id := d.notifier.SendDailySummary(ctx, today, tasks); id != "" {
		d.log.Infow("sent daily summary", "tasks", len(tasks))
	}
}

func (d *Daemon) sendUpcomingSummary(ctx context.Context) {
	now := d.tasks.Now()
	if !d.withinWorkHours(now) {
		return
	}

	tasks, err := d.tasks.UpcomingTasks(ctx, upcomingWindow)
	if err != nil {
		d.log.Errorw("upcoming summary", "err", err)
		return
	}
	if len(tasks) == 0 {
		return
	}
	if id := d.notifier.SendUpcomingSummary(ctx, tasks, upcomingWindow, now); id != "" {
		d.log.Infow("sent upcoming summary", "tasks", len(tasks))
	}
}

// withinWorkHours reports whether now falls inside the configured weekday
// work window.
func (d *Daemon) withinWorkHours(now time.Time) bool {
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	window := d.cfg.Notifications.UpcomingSummaryWorkHours
	if len(window) != 2 {
		return true
	}
	start, err1 := minutesOfDay(window[0])
	end, err2 := minutesOfDay(window[1])
	if err1 != nil || err2 != nil {
		return true
	}
	current := now.Hour()*60 + now.Minute()
	return current >= start && current <= end
}

func minutesOfDay(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return hour*60 + minute, nil
}

// onCommand handles one inbound message from the command topic. It runs on
// the listener goroutine.
func (d *Daemon) onCommand(message string, ev ntfy.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.commandTimeout())
	defer cancel()

	// Every message on the command topic shares one rate-limit bucket.
	// Throttling happens before any processing so a message flood cannot
	// stack agent subprocesses.
	source := "ntfy:" + d.cfg.Ntfy.CommandTopic
	if !d.limiter.Allow(source) {
		d.log.Warnw("rate limit exceeded", "source", source)
		d.notifier.SendCommandResponse(ctx, "⏱️ Please wait a moment between commands")
		return
	}

	if d.agent != nil {
		response, err := d.agent.ProcessCommand(ctx, message)
		if err == nil {
			d.notifier.SendCommandResponse(ctx, response)
			return
		}
		d.log.Warnw("agent failed, falling back to simple processing", "err", err)
		if agent.IsAgentError(err) {
			d.notifier.SendCommandResponse(ctx, "⚠️ AI agent unavailable, using simple commands. Send 'help' for the list.")
		}
	}

	result := d.processor.Process(ctx, message, source)
	d.notifier.SendCommandResponse(ctx, result.Message)
}

func (d *Daemon) commandTimeout() time.Duration {
	if d.agent != nil {
		return d.cfg.Agent.CommandTimeout() + 10*time.Second
	}
	return 30 * time.Second
}
