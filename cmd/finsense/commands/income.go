package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/budget"
	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/ledger"
)

var incomeCmd = &cobra.Command{
	Use:   "income",
	Short: "Record and summarize income",
}

var incomeSetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Set the monthly base income",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.store.SetIncome(cmd.Context(), a.profile.UserID, amount); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Income of %s recorded.", cli.FormatMoney(ledger.Round2(amount)))
		return nil
	},
}

var incomeAddCmd = &cobra.Command{
	Use:   "add <source> <amount>",
	Short: "Add a secondary income source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		src := ledger.IncomeSource{Source: args[0], Amount: amount}
		if err := a.store.AddIncomeSource(cmd.Context(), a.profile.UserID, src); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Income source %q of %s recorded.", args[0], cli.FormatMoney(ledger.Round2(amount)))
		return nil
	},
}

var incomeSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show salary, income sources and total",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		salary, err := a.store.Income(ctx, a.profile.UserID)
		if err != nil {
			return err
		}
		sources, err := a.store.IncomeSources(ctx, a.profile.UserID)
		if err != nil {
			return err
		}
		return output(cmd, budget.SummarizeIncome(salary, sources))
	},
}

func init() {
	incomeCmd.AddCommand(incomeSetCmd)
	incomeCmd.AddCommand(incomeAddCmd)
	incomeCmd.AddCommand(incomeSummaryCmd)
	rootCmd.AddCommand(incomeCmd)
}
