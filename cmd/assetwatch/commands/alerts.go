package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

func (app *App) alertsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage alert configurations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List global alerts and the alerts of the acting user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return printJSON(cmd.OutOrStdout(), d.registry.List(app.userID))
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one alert",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				a, err := d.registry.Get(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a)
			},
		},
		&cobra.Command{
			Use:   "create <file|->",
			Short: "Create an alert from a JSON document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := readInput(args[0])
				if err != nil {
					return err
				}
				a := &rules.AlertConfig{}
				if err := json.Unmarshal(b, a); err != nil {
					return err
				}
				if a.UserID == "" {
					a.UserID = app.userID
				}

				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				created, err := d.registry.Create(a)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), created)
			},
		},
		&cobra.Command{
			Use:   "update <id> <file|->",
			Short: "Merge the fields of a JSON object into an alert",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				patch, err := readInput(args[1])
				if err != nil {
					return err
				}
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				a, err := d.registry.Update(args[0], patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a)
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Enable or disable an alert",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return d.registry.Toggle(args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an alert",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return d.registry.Delete(args[0])
			},
		},
		&cobra.Command{
			Use:   "import <file|->",
			Short: "Import a JSON array of alerts owned by the acting user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := readInput(args[0])
				if err != nil {
					return err
				}
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				imported, err := d.registry.Import(b, app.userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d alerts imported\n", len(imported))
				return nil
			},
		},
		app.alertsExportCommand(),
	)
	return cmd
}

func (app *App) alertsExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the alerts owned by the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(app.Config)
			if err != nil {
				return err
			}
			defer d.close()
			b, err := d.registry.Export(app.userID)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(b, '\n'))
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}
