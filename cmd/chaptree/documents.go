package main

import (
	"os"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage stored documents",
}

var documentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored documents",
	Run: func(cmd *cobra.Command, args []string) {
		app := setupApp()
		defer app.Close()
		exitOnError("listing documents", app.ListDocuments(cmd.Context(), os.Stdout))
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:     "delete <document>...",
	Aliases: []string{"rm"},
	Short:   "Delete documents",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := setupApp()
		defer app.Close()
		for _, id := range args {
			exitOnError("deleting "+id, app.DeleteDocument(cmd.Context(), id))
		}
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsDeleteCmd)
}
