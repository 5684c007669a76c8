package main

import (
	"os"

	"github.com/aretw0/chaptree/internal/presentation/tui"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <document>",
	Short: "Print the outline of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		app := setupApp()
		defer app.Close()

		var renderer func(string) (string, error)
		if !plain {
			renderer = tui.RendererFor(os.Stdout)
		}
		exitOnError("showing document", app.Show(cmd.Context(), os.Stdout, args[0], renderer))
	},
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <document>",
	Short: "Export the outline as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) with one box per chapter in reading order.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selected, _ := cmd.Flags().GetString("select")
		var path domain.Path
		if selected != "" {
			var err error
			path, err = domain.ParsePath(selected)
			exitOnError("parsing --select", err)
		}

		app := setupApp()
		defer app.Close()
		exitOnError("exporting graph", app.Graph(cmd.Context(), os.Stdout, args[0], path))
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout <document>",
	Short: "Print the box geometry of a document as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		viewport, _ := cmd.Flags().GetFloat64("viewport")
		app := setupApp()
		defer app.Close()
		exitOnError("computing layout", app.Layout(cmd.Context(), os.Stdout, args[0], viewport))
	},
}

func init() {
	rootCmd.AddCommand(showCmd, graphCmd, layoutCmd)
	showCmd.Flags().Bool("plain", false, "Print raw Markdown even on a terminal")
	graphCmd.Flags().String("select", "", "Highlight the chapter at this path")
	layoutCmd.Flags().Float64("viewport", 0, "Viewport width; boxes shrink to fit when the tree is wider")
}
