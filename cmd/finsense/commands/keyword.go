package commands

import (
	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/ledger"
)

var keywordCmd = &cobra.Command{
	Use:   "keyword",
	Short: "Manage categorization keywords",
	Long: `Keywords extend the built-in categorization rules. A transaction whose
description contains a keyword is assigned to the keyword's group:

  needs    essential spending (groceries, rent, insurance)
  wants    discretionary spending (streaming, dining out)
  income   positive amounts counted as income, e.g. an employer name
  expense  positive amounts that are refunds of an expense`,
}

var keywordAddCmd = &cobra.Command{
	Use:   "add <group> <word>",
	Short: "Add a keyword to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		added, err := a.store.AddKeyword(cmd.Context(), a.profile.UserID, ledger.KeywordGroup(args[0]), args[1])
		if err != nil {
			return err
		}
		if !added {
			cli.PrintWarning(cmd.OutOrStdout(), "Keyword %q already in %s.", args[1], args[0])
			return nil
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Keyword %q added to %s.", args[1], args[0])
		return nil
	},
}

var keywordListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List keywords by group",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		kw, err := a.store.Keywords(cmd.Context(), a.profile.UserID)
		if err != nil {
			return err
		}
		return output(cmd, kw)
	},
}

func init() {
	keywordCmd.AddCommand(keywordAddCmd)
	keywordCmd.AddCommand(keywordListCmd)
	rootCmd.AddCommand(keywordCmd)
}
