package main

import (
	"fmt"
	"os"

	"github.com/aretw0/chaptree/internal/cli"
	"github.com/spf13/cobra"
)

var rootOpts cli.Options

var rootCmd = &cobra.Command{
	Use:   "chaptree",
	Short: "chaptree is an outline editor for chapter trees",
	Long: `chaptree keeps hierarchical chapter outlines as documents and edits them with
path addressed commands: insert before, after or as a wrapping child, rename,
remove and assign master layouts. Paths are dotted sibling indices such as 0.1.2.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.ConfigPath, "config", "", "Path to a YAML or JSON config file")
	flags.BoolVar(&rootOpts.Debug, "debug", false, "Enable debug logging and command tracing")
	flags.StringVar(&rootOpts.Store, "store", "", "Document store: memory, file or redis (overrides config)")
	flags.StringVar(&rootOpts.Dir, "dir", "", "Directory of the file store (overrides config)")
}

// setupApp wires the application or exits.
func setupApp() *cli.App {
	app, err := cli.Setup(rootOpts)
	if err != nil {
		fmt.Printf("Error initializing chaptree: %v\n", err)
		os.Exit(1)
	}
	return app
}

func exitOnError(action string, err error) {
	if err == nil {
		return
	}
	fmt.Printf("Error %s: %v\n", action, err)
	os.Exit(1)
}
