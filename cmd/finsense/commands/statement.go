package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/statement"
)

var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Import and parse bank statements",
	Long: `Statements are text exports of bank statements, one transaction per
line in the form "dd.mm.yyyy  description  -1.234,56 €". They are kept in
the context's statement archive (a directory or an S3 bucket).`,
}

var statementImportName string

var statementImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Copy a statement file into the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		name := statementImportName
		if name == "" {
			name = filepath.Base(args[0])
		}
		if err := a.archive.Put(cmd.Context(), name, f); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Statement imported as %q.", name)
		return nil
	},
}

var statementListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archived statements",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		names, err := a.archive.List(cmd.Context())
		if err != nil {
			return err
		}
		if formatOutput != "" {
			return output(cmd, names)
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var statementParseSave bool

var statementParseCmd = &cobra.Command{
	Use:   "parse <name>",
	Short: "Parse an archived statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		rc, err := a.archive.Open(ctx, args[0])
		if err != nil {
			return err
		}
		txs, err := statement.Parse(rc)
		rc.Close()
		if err != nil {
			return err
		}
		for i := range txs {
			txs[i].Statement = args[0]
		}
		if statementParseSave {
			n, err := a.store.AddTransactions(ctx, a.profile.UserID, txs)
			if err != nil {
				return err
			}
			cli.PrintSuccess(cmd.ErrOrStderr(), "%d of %d transactions saved.", n, len(txs))
		}
		return output(cmd, txs)
	},
}

func init() {
	statementImportCmd.Flags().StringVar(&statementImportName, "name", "", "name in the archive (default: file name)")
	statementParseCmd.Flags().BoolVar(&statementParseSave, "save", false, "store the transactions in the ledger")

	statementCmd.AddCommand(statementImportCmd)
	statementCmd.AddCommand(statementListCmd)
	statementCmd.AddCommand(statementParseCmd)
	rootCmd.AddCommand(statementCmd)
}
