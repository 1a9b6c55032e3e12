package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

func (app *App) varsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Manage the variables of the acting user",
	}

	var typ, description string
	add := &cobra.Command{
		Use:   "add <key> <value>",
		Short: "Add a variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(app.Config)
			if err != nil {
				return err
			}
			defer d.close()
			v, err := d.variables.Add(app.userID, rules.UserVariable{
				Key:         args[0],
				Value:       cliValue(args[1], typ),
				Type:        typ,
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	add.Flags().StringVarP(&typ, "type", "t", "", "NUMBER, BOOLEAN or STRING (inferred when empty)")
	add.Flags().StringVarP(&description, "description", "d", "", "variable description")

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the variables of the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(app.Config)
			if err != nil {
				return err
			}
			defer d.close()
			b, err := d.variables.Export(app.userID)
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
	export.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List variables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return printJSON(cmd.OutOrStdout(), d.variables.List(app.userID))
			},
		},
		add,
		&cobra.Command{
			Use:   "set <id> <value>",
			Short: "Replace the value of a variable",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return d.variables.Update(app.userID, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a variable",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := buildDeps(app.Config)
				if err != nil {
					return err
				}
				defer d.close()
				return d.variables.Delete(app.userID, args[0])
			},
		},
		&cobra.Command{
			Use:   "import <file|->",
			Short: "Import variables whose key is not defined yet",
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
				n, err := d.variables.Import(b, app.userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d variables imported\n", n)
				return nil
			},
		},
		export,
	)
	return cmd
}

// cliValue reads numbers and booleans from the command line as such when no
// type is given.
func cliValue(s, typ string) interface{} {
	if typ != "" {
		return s
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
