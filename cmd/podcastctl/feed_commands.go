package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/pipeline"
	"mail-podcaster/internal/worker"
)

func newFeedIDCommand(ctx *commandContext, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "feed-id <email>",
		Short: "Print the personal feed id and URL for a sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sender := strings.TrimSpace(args[0])
			id := feed.IDFor(sender)
			url := pipeline.FeedURL(cfg.PublicURL, sender)

			if *jsonOutput {
				return writeJSON(cmd, map[string]string{"feedId": id, "feedUrl": url})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newListFeedsCommand(ctx *commandContext, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list-feeds",
		Short: "List registered feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.ensureRegistry(cmd.Context())
			if err != nil {
				return err
			}
			feeds, err := registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(cmd, feeds)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FEED\tSENDER\tLAST SEEN")
			for _, f := range feeds {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.FeedID, f.Sender, f.LastSeenAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newSyncFeedsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-feeds",
		Short: "Register every stored sender in the feed registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			registry, err := ctx.ensureRegistry(cmd.Context())
			if err != nil {
				return err
			}
			res, err := worker.SyncFeeds(cmd.Context(), store, registry)
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d senders (%d collisions)\n", res.Senders, res.Collisions)
			return err
		},
	}
}
