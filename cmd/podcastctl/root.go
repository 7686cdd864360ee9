package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var verbose bool
	var jsonOutput bool

	ctx := newCommandContext(&verbose)

	rootCmd := &cobra.Command{
		Use:           "podcastctl",
		Short:         "Administer stored podcast episodes and feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine readable JSON")

	rootCmd.AddCommand(newListEpisodesCommand(ctx, &jsonOutput))
	rootCmd.AddCommand(newShowEpisodeCommand(ctx))
	rootCmd.AddCommand(newDeleteEpisodeCommand(ctx))
	rootCmd.AddCommand(newMigrateURLsCommand(ctx, &jsonOutput))
	rootCmd.AddCommand(newFeedIDCommand(ctx, &jsonOutput))
	rootCmd.AddCommand(newListFeedsCommand(ctx, &jsonOutput))
	rootCmd.AddCommand(newSyncFeedsCommand(ctx))

	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
