package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngrabbs/schedule-manager/internal/service"
)

var listDaysAhead int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show today's schedule",
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

		day := tasks.Now()
		scheduled, err := tasks.TasksForDay(ctx, day, listDaysAhead)
		if err != nil {
			return err
		}

		fmt.Printf("📅 %s\n\n", day.Format("Monday, January 02"))
		fmt.Println(service.DailySummaryBody(scheduled))
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&listDaysAhead, "days", "d", 0, "also include this many following days")
}
