package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/migrate"
	"mail-podcaster/internal/storage"
)

func newListEpisodesCommand(ctx *commandContext, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list-episodes",
		Short: "List stored episodes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			episodes, err := store.ListEpisodes(cmd.Context())
			if err != nil {
				return err
			}
			feed.SortNewestFirst(episodes)

			if *jsonOutput {
				return writeJSON(cmd, episodes)
			}
			if len(episodes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No episodes")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tFEED\tTITLE")
			for _, ep := range episodes {
				feedID := "-"
				if sender := ep.Sender(); sender != "" {
					feedID = feed.IDFor(sender)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ep.ID, ep.Date.Format("2006-01-02 15:04"), feedID, ep.Title)
			}
			return tw.Flush()
		},
	}
}

func newShowEpisodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show-episode <id>",
		Short: "Print the stored metadata of one episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			episode, ok, err := store.GetMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("episode %s not found", args[0])
			}
			return writeJSON(cmd, episode)
		},
	}
}

func newDeleteEpisodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-episode <id>",
		Short: "Delete an episode's audio and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			if err := store.DeleteEpisode(cmd.Context(), id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("episode %s not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted episode %s\n", id)
			return nil
		},
	}
}

func newMigrateURLsCommand(ctx *commandContext, jsonOutput *bool) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "migrate-urls",
		Short: "Point stored audio URLs at the public base URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if baseURL == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				baseURL = cfg.PublicURL
			}
			res, err := migrate.RewriteAudioURLs(cmd.Context(), store, strings.TrimRight(baseURL, "/"), ctx.logger)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d episodes (%d already current)\n", res.Updated, res.Total, res.Skipped)
			for _, id := range res.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", id)
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d episodes could not be migrated", len(res.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL (defaults to PUBLIC_URL)")
	return cmd
}
