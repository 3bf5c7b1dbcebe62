package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/spf13/cobra"
)

func newContactsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the local address book",
	}

	cmd.AddCommand(
		newContactsListCmd(app),
		newContactsAddCmd(app),
		newContactsRemoveCmd(app),
	)

	return cmd
}

func newContactsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := app.contacts.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No contacts saved.")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ALIAS\tIDENTITY")
			for _, entry := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", entry.Alias, entry.Identity)
			}
			return w.Flush()
		},
	}
}

func newContactsAddCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <identity> <alias>",
		Short: "Save a contact or rename an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := domain.ContactEntry{Identity: domain.Identity(args[0]), Alias: args[1]}
			if err := app.contacts.Save(cmd.Context(), entry); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s as %q\n", entry.Identity, entry.Alias)
			return err
		},
	}
}

func newContactsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <identity>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.contacts.Remove(cmd.Context(), domain.Identity(args[0])); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return err
		},
	}
}
