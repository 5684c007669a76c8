package main

import (
	"os"

	"github.com/aretw0/chaptree/internal/cli"
	"github.com/spf13/cobra"
)

var lintOpts cli.LintOptions

var lintCmd = &cobra.Command{
	Use:   "lint <document>",
	Short: "Report unnamed chapters, missing masters and other outline problems",
	Long: `Checks a stored document. Rules:
  unnamed           chapter is still to be named
  no-master         chapter has no master layout
  duplicate-master  the same master is assigned twice to one chapter
  too-deep          chapter is nested deeper than --max-depth`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := setupApp()
		defer app.Close()
		exitOnError("linting document", app.Lint(cmd.Context(), os.Stdout, args[0], lintOpts))
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().StringSliceVar(&lintOpts.Rules, "rule", nil, "Only run these rules")
	lintCmd.Flags().IntVar(&lintOpts.MaxDepth, "max-depth", 0, "Deepest allowed chapter, 0 for no limit")
	lintCmd.Flags().BoolVar(&lintOpts.Strict, "strict", false, "Exit non-zero when anything is reported")
	lintCmd.Flags().BoolVar(&lintOpts.JSON, "json", false, "Print findings as JSON")
}
