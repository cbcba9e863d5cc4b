package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/pkg/agent"
	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/memory"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the budgeting assistant",
	Long: `Start an interactive session. Each line is one agent run; the
entries it produced are printed after the run. Type 'exit' or 'quit' to
stop.

With --session the conversation is loaded from and saved to the ledger
under that name, so it can be continued later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ag, err := a.agent()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		mem, err := loadChatSession(ctx, a)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		styles := cli.NewStyles(cli.DefaultTheme)
		cli.PrintInfo(out, "Chatting as %s in context %s. Type 'exit' to quit.", a.profile.UserID, a.name)

		in := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !in.Scan() {
				break
			}
			line := strings.TrimSpace(in.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			before := mem.Len()
			opts := append(a.runOptions(), agent.WithMemory(mem))
			_, runErr := ag.Run(ctx, line, opts...)
			printEntries(out, mem.All()[before:], styles)
			if chatSession != "" {
				if err := a.store.SaveSession(ctx, a.profile.UserID, chatSession, mem); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
			}
			if runErr != nil {
				return runErr
			}
		}
		return in.Err()
	},
}

func loadChatSession(ctx context.Context, a *app) (*memory.Memory, error) {
	if chatSession == "" {
		return memory.New(), nil
	}
	mem, err := a.store.LoadSession(ctx, a.profile.UserID, chatSession)
	if errors.Is(err, ledger.ErrNotFound) {
		return memory.New(), nil
	}
	return mem, err
}

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Run the assistant once on an input",
	Long: `Run the assistant on one input and print the resulting memory log.

Examples:
  finsense run "my monthly salary is 3200 euros"
  finsense run "parse march.txt and tell me if I'm over budget"
  finsense run -o json "summarize my income"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ag, err := a.agent()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		mem, runErr := ag.Run(ctx, strings.Join(args, " "), a.runOptions()...)
		if formatOutput != "" {
			if err := output(cmd, mem.All()); err != nil {
				return err
			}
		} else {
			printEntries(cmd.OutOrStdout(), mem.All(), cli.NewStyles(cli.DefaultTheme))
		}
		return runErr
	},
}

func printEntries(w io.Writer, entries []memory.Entry, styles cli.Styles) {
	fmt.Fprint(w, cli.RenderMemory(entries, styles, 0))
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "load and save the conversation under this name")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
}
