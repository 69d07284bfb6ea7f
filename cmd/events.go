package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ailice/ailice/config"
	"github.com/ailice/ailice/internal/events"
	"github.com/ailice/ailice/internal/mq"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print account events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		queue, err := mq.Open(cmd.Context(), cfg.Events)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("no events backend configured; set EVENTS_BACKEND")
		}
		defer queue.Close()

		out := cmd.OutOrStdout()
		err = queue.Subscribe(cmd.Context(), cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			var event events.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Foreign payloads are acknowledged and skipped.
				fmt.Fprintf(out, "skipping undecodable message %s\n", msg.ID)
				return nil
			}
			fmt.Fprintf(out, "%s %-20s %s (%s)\n", event.At.Format("2006-01-02T15:04:05Z07:00"), event.Type, event.Email, event.Username)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
