package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/rules/engine"
	"github.com/moonwalker/assetwatch/pkg/rules/eventsource"
)

func (app *App) serveCommand() *cobra.Command {
	var statsInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the alert scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			d, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			defer d.close()

			e := d.engine(cfg)
			defer e.Close()

			e.OnStats(statsInterval, func(s *engine.EngineStats) {
				slog.Info("engine stats",
					"enabled", s.EngineEnabled,
					"running", s.Running,
					"activeAlerts", s.ActiveAlerts,
					"lastFired", s.LastFired,
					"lastErrors", s.LastErrors,
				)
			})

			if cfg.Nats.Commands && cfg.Nats.URL != "" {
				src := eventsource.NewNatsCommandSource(natsOptions(cfg.Nats))
				if err := src.Receive(e.Commands); err != nil {
					return err
				}
				defer src.Close()
				slog.Info("listening for commands", "subject", rules.CommandPrefix+"*")
			}

			if err := e.Start(); err != nil {
				return err
			}

			<-cmd.Context().Done()
			slog.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().DurationVar(&statsInterval, "stats", 5*time.Minute, "engine stats log interval")
	return cmd
}
