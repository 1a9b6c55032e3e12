package commands

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moonwalker/assetwatch/pkg/config"
	"github.com/moonwalker/assetwatch/pkg/env"
)

// App holds what every command shares.
type App struct {
	Config     *config.Config
	Version    string
	configPath string
	userID     string
	debug      bool
}

func New(version string) *cobra.Command {
	app := &App{Version: version}

	root := &cobra.Command{
		Use:           "assetwatch",
		Short:         "Rule based alerts over IT asset inventory, loans and hand-over records",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.configPath)
			if err != nil {
				return err
			}
			if app.debug {
				cfg.Log.Level = "debug"
			}
			app.Config = cfg
			setupLogging(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&app.configPath, "config", "c", env.Get("ASSETWATCH_CONFIG", ""), "path to config file")
	root.PersistentFlags().StringVarP(&app.userID, "user", "u", env.Get("ASSETWATCH_USER", ""), "acting user id")
	root.PersistentFlags().BoolVar(&app.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		app.serveCommand(),
		app.checkCommand(),
		app.alertsCommand(),
		app.varsCommand(),
		app.fieldsCommand(),
		app.historyCommand(),
		app.ctlCommand(),
	)
	return root
}

func setupLogging(w io.Writer, cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
