package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/finsense/finsense/cmd/finsense/internal/config"
	"github.com/finsense/finsense/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts.

A context is a named directory holding a profile.yaml, model configs, the
ledger database and imported statements. Each context is an isolated
budget, for example "personal" and "family".

Examples:
  finsense config list-contexts
  finsense config add-context personal --user alice --model gpt-4o-mini
  finsense config use-context personal
  finsense config current-context
  finsense config show`,
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No contexts configured.")
			fmt.Fprintln(out, "Create one with: finsense config add-context <name>")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tUSER\tMODEL")
		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			user, model := "?", "?"
			if p, err := config.LoadProfile(cfg.ContextDir(name)); err == nil {
				user, model = p.UserID, p.Model
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, user, model)
		}
		return w.Flush()
	},
}

var (
	addContextUser  string
	addContextModel string
)

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		p := config.DefaultProfile(addContextUser)
		p.Model = addContextModel
		if err := cfg.AddContext(name, p); err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			if err := cfg.UseContext(name); err != nil {
				return err
			}
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q created.", name)
		fmt.Fprintf(cmd.OutOrStdout(), "Add model configs under %s\n", cfg.ContextDir(name)+"/models")
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context with its ledger and statements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q deleted.", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Switched to context %q.", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved profile of a context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		_, dir, err := cfg.ResolveContext(contextName)
		if err != nil {
			return err
		}
		p, err := config.LoadProfile(dir)
		if err != nil {
			return err
		}
		if s3 := p.Statements.S3; s3 != nil {
			masked := *s3
			masked.SecretKey = cli.MaskSecret(masked.SecretKey)
			p.Statements.S3 = &masked
		}
		if formatOutput == string(cli.FormatJSON) {
			return output(cmd, p)
		}
		data, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configAddContextCmd.Flags().StringVar(&addContextUser, "user", "", "user ID keying the ledger (default \"default\")")
	configAddContextCmd.Flags().StringVar(&addContextModel, "model", "", "model name registered from the models directory")

	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}
