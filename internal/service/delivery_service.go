package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/model"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

// DeliveryService drains the due-notification queue on each scheduler tick.
// Delivery is at-least-once: a notification stays unsent until the relay
// returns a message id, so a crash between relay accept and mark-sent can
// duplicate a send on restart.
type DeliveryService struct {
	tasks         *repository.TaskRepository
	notifications *repository.NotificationRepository
	notifier      *NotifierService
	now           func() time.Time
	log           *zap.SugaredLogger
}

func NewDeliveryService(
	tasks *repository.TaskRepository,
	notifications *repository.NotificationRepository,
	notifier *NotifierService,
	now func() time.Time,
	log *zap.SugaredLogger,
) *DeliveryService {
	return &DeliveryService{
		tasks:         tasks,
		notifications: notifications,
		notifier:      notifier,
		now:           now,
		log:           log,
	}
}

// Sweep sends every unsent notification due at or before now. A failed send
// leaves the row unsent for the next tick; one bad notification never stops
// the rest of the batch.
func (s *DeliveryService) Sweep(ctx context.Context) {
	due, err := s.notifications.ListDue(ctx, s.now())
	if err != nil {
		s.log.Errorw("list due notifications", "err", err)
		return
	}

	for _, n := range due {
		if err := s.deliver(ctx, n); err != nil {
			s.log.Errorw("deliver notification", "notification_id", n.ID, "err", err)
		}
	}
}

func (s *DeliveryService) deliver(ctx context.Context, n model.Notification) error {
	if n.Type != model.NotificationReminder || n.TaskID == nil {
		return nil
	}

	task, err := s.tasks.FindByID(ctx, *n.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	// Reminders only fire for tasks still pending; completed or cancelled
	// tasks keep their queue rows but stay silent.
	if task.Status != model.StatusPending || task.ScheduledTime == nil {
		return nil
	}

	minutesBefore := int(math.Round(task.ScheduledTime.Sub(n.FireAt).Minutes()))

	relayID := s.notifier.SendTaskReminder(ctx, task, minutesBefore)
	if relayID == "" {
		// Relay failure: leave unsent, retry next tick.
		return nil
	}

	if err := s.notifications.MarkSent(ctx, n.ID, relayID); err != nil {
		return err
	}
	s.log.Infow("sent reminder", "task", task.Title, "minutes_before", minutesBefore)
	return nil
}
