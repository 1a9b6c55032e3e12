package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moonwalker/assetwatch/pkg/elastic"
	"github.com/moonwalker/assetwatch/pkg/notify"
	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/rules/eventsource"
)

func (app *App) fieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields [module]",
		Short: "Show the fields and operators available to conditions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules := []string{rules.MODULE_LOANS, rules.MODULE_INVENTORY, rules.MODULE_HANDOVER}
			if len(args) == 1 {
				modules = []string{strings.ToUpper(args[0])}
			}
			fields := make(map[string][]rules.FieldDefinition, len(modules))
			for _, m := range modules {
				fields[m] = rules.Fields(m)
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"fields":    fields,
				"operators": rules.Operators(),
			})
		},
	}
}

func (app *App) historyCommand() *cobra.Command {
	var alertID string
	var size int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent notifications from the elasticsearch history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Notify.Elastic
			if len(cfg.Addresses) == 0 {
				return fmt.Errorf("notify.elastic.addresses is not configured")
			}
			es, err := elastic.NewClient(cfg.Addresses...)
			if err != nil {
				return err
			}
			res, err := notify.NewHistory(es, cfg.Index).Recent(cmd.Context(), alertID, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&alertID, "alert", "", "only notifications of this alert")
	cmd.Flags().IntVarP(&size, "size", "n", 20, "number of notifications")
	return cmd
}

var ctlTopics = map[string]string{
	"reload": rules.CmdReload,
	"pause":  rules.CmdPause,
	"resume": rules.CmdResume,
	"tick":   rules.CmdTick,
}

func (app *App) ctlCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "ctl <reload|pause|resume|tick>",
		Short:     "Send a command to running schedulers over nats",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"reload", "pause", "resume", "tick"},
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, ok := ctlTopics[args[0]]
			if !ok {
				return fmt.Errorf("unknown command %q", args[0])
			}
			if app.Config.Nats.URL == "" {
				return fmt.Errorf("nats.url is not configured")
			}
			src := eventsource.NewNatsCommandSource(natsOptions(app.Config.Nats))
			if topic == rules.CmdReload {
				return src.TriggerReload()
			}
			return src.Publish(topic, nil)
		},
	}
}
