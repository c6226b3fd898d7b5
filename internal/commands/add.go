package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngrabbs/schedule-manager/internal/nlp"
	"github.com/ngrabbs/schedule-manager/internal/repository"
	"github.com/ngrabbs/schedule-manager/internal/service"
)

var addPriority string

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a task from a natural-language description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		tasks, err := newTaskService(a)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		task, err := tasks.AddNatural(ctx, strings.Join(args, " "), addPriority, nil)
		if err != nil {
			return err
		}

		fmt.Printf("Added task %d: %s\n", task.ID, task.Title)
		if task.ScheduledTime != nil {
			fmt.Printf("Scheduled for %s\n", task.ScheduledTime.Format("Mon Jan 02 at 3:04 PM"))
		}
		if task.IsRecurring {
			fmt.Printf("Recurring: %s\n", strings.Join(task.RecurrenceRule.Days, ", "))
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "task priority (high/medium/low)")
}

func newTaskService(a *app) (*service.TaskService, error) {
	parser, err := nlp.NewParser(a.cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}
	return service.NewTaskService(
		repository.NewTaskRepository(a.db),
		repository.NewNotificationRepository(a.db),
		parser,
		a.cfg.Notifications.ReminderMinutesBefore,
		a.log,
	), nil
}
