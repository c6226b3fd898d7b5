package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngrabbs/schedule-manager/internal/ntfy"
	"github.com/ngrabbs/schedule-manager/internal/service"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test notification to verify the relay setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		client := ntfy.NewClient(a.cfg.Ntfy.Server, a.cfg.Ntfy.Topic, a.cfg.Ntfy.Priority)
		notifier := service.NewNotifierService(client, "", a.log)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if id := notifier.SendTest(ctx); id == "" {
			return fmt.Errorf("test notification failed, check ntfy settings")
		}
		fmt.Printf("Test notification sent to %s/%s\n", a.cfg.Ntfy.Server, a.cfg.Ntfy.Topic)
		return nil
	},
}
