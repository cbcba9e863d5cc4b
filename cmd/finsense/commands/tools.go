package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/action"
	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/environment"
	"github.com/finsense/finsense/pkg/tool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and call tools directly",
}

var toolsListTag string

var toolsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tools := a.tools.All()
		if toolsListTag != "" {
			tools = a.tools.Tagged(toolsListTag)
		}
		if formatOutput != "" {
			type info struct {
				Name        string   `json:"name"`
				Description string   `json:"description"`
				Parameters  any      `json:"parameters"`
				Terminal    bool     `json:"terminal,omitempty"`
				Tags        []string `json:"tags,omitempty"`
			}
			list := make([]info, 0, len(tools))
			for _, t := range tools {
				list = append(list, info{t.Name, t.Description, t.Parameters, t.Terminal, t.Tags})
			}
			return output(cmd, list)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPARAMETERS\tDESCRIPTION")
		for _, t := range tools {
			name := t.Name
			if t.Terminal {
				name += " (terminal)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(tool.SchemaProperties(t.Parameters), ","), t.Description)
		}
		return w.Flush()
	},
}

var (
	toolsCallFile string
	toolsCallArgs string
)

var toolsCallCmd = &cobra.Command{
	Use:   "call <name>",
	Short: "Invoke a tool and print its result envelope",
	Long: `Invoke a tool outside of an agent run. Arguments come from a YAML or
JSON file (-f, "-" for stdin) or an inline JSON object (--args).

Examples:
  finsense tools call record_income --args '{"amount": 3200}'
  finsense tools call query_transactions -f query.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		t, ok := a.tools.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown tool: %s", args[0])
		}
		var callArgs map[string]any
		switch {
		case toolsCallFile != "":
			if err := cli.LoadRequest(toolsCallFile, &callArgs); err != nil {
				return err
			}
		case toolsCallArgs != "":
			if err := json.Unmarshal([]byte(toolsCallArgs), &callArgs); err != nil {
				return fmt.Errorf("invalid --args: %w", err)
			}
		}

		env := environment.New(environment.WithLogger(a.logger))
		res := env.Execute(cmd.Context(), action.FromTool(t), callArgs)
		if err := output(cmd, res); err != nil {
			return err
		}
		return res.Err()
	},
}

func init() {
	toolsListCmd.Flags().StringVar(&toolsListTag, "tag", "", "only tools with this tag")
	toolsCallCmd.Flags().StringVarP(&toolsCallFile, "file", "f", "", "argument file (YAML or JSON, - for stdin)")
	toolsCallCmd.Flags().StringVar(&toolsCallArgs, "args", "", "arguments as a JSON object")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}
