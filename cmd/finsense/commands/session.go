package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/cli"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved chat sessions",
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		sessions, err := a.store.ListSessions(cmd.Context(), a.profile.UserID)
		if err != nil {
			return err
		}
		if formatOutput != "" {
			return output(cmd, sessions)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENTRIES\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Entries, s.UpdatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the memory log of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		mem, err := a.store.LoadSession(cmd.Context(), a.profile.UserID, args[0])
		if err != nil {
			return err
		}
		if formatOutput != "" {
			return output(cmd, mem.All())
		}
		printEntries(cmd.OutOrStdout(), mem.All(), cli.NewStyles(cli.DefaultTheme))
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.store.DeleteSession(cmd.Context(), a.profile.UserID, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Session %q deleted.", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}
