package main

import (
	"os"
	"strings"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/cli"
	"github.com/aretw0/chaptree/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <document> <command> <path> [argument]",
	Short: "Apply one command to a document",
	Long: `Applies one command and prints the new outline. The document is started
with a single unnamed root chapter if it does not exist.

  chaptree apply book insert-after 0
  chaptree apply book rename 1 Appendix
  chaptree apply book assign-master 0.2 two-column`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		app := setupApp()
		defer app.Close()
		exitOnError("applying command", app.Apply(cmd.Context(), os.Stdout, args[0], args[1:]))
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <document>",
	Short: "Edit a document interactively",
	Long: `Reads one command per line, saves every new revision and prints the outline.

With --json every line is a command envelope such as
  {"kind":"rename","path":[0,1],"name":"Intro"}
and every reply is a JSON object carrying the revision and, when it changed, the document.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")
		jsonMode, _ := cmd.Flags().GetBool("json")
		interactive := tui.IsInteractive(os.Stdin) && !headless && !jsonMode

		app := setupApp()
		defer app.Close()

		if interactive {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(chaptree.Version))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		opts := cli.EditOptions{
			Input:    cli.NewInterruptibleReader(os.Stdin, ctx.Done()),
			Output:   os.Stdout,
			Headless: !interactive,
			JSON:     jsonMode,
		}
		if interactive {
			opts.Renderer = tui.RendererFor(os.Stdout)
		}
		exitOnError("editing document", cli.HandleExecutionError(app.Edit(ctx, args[0], opts)))
	},
}

func init() {
	rootCmd.AddCommand(applyCmd, editCmd)
	editCmd.Flags().Bool("headless", false, "Suppress prompts and banners, for scripted input")
	editCmd.Flags().Bool("json", false, "Speak JSON Lines: command envelopes in, documents out")
}
