/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tutrabajo/apiserver/config"
	"github.com/tutrabajo/apiserver/internal/events"
	"github.com/tutrabajo/apiserver/internal/logger"
)

// eventsCmd groups the entity event commands.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect entity change events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log events from EVENTS_CHANNEL until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := events.NewBackend(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}

		publisher := events.NewPublisher(backend, cfg.Events.Channel, log)
		defer publisher.Close()

		err = publisher.Subscribe(ctx, func(_ context.Context, event events.Event) error {
			log.WithFields(logrus.Fields{
				"event_id":    event.ID,
				"event_type":  event.Type,
				"entity_id":   event.EntityID,
				"occurred_at": event.OccurredAt,
			}).Info("event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
