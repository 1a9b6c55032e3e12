package commands

import (
	"github.com/spf13/cobra"
)

func (app *App) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [alert-id]",
		Short: "Evaluate one alert without notifying, or run a single tick",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(app.Config)
			if err != nil {
				return err
			}
			defer d.close()

			e := d.engine(app.Config)
			defer e.Close()

			if len(args) == 1 {
				res, err := e.Check(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}

			res := e.Tick(cmd.Context())
			errs := make(map[string]string, len(res.Errors))
			for id, err := range res.Errors {
				errs[id] = err.Error()
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"time":      res.Time,
				"evaluated": res.Evaluated,
				"skipped":   res.Skipped,
				"fired":     res.Fired,
				"errors":    errs,
			})
		},
	}
}
