package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/henri123lemoine/gridmsg/internal/source"
	"github.com/henri123lemoine/gridmsg/internal/ui"
)

func (c *cli) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the document cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached documents, newest first",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheList,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached document",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheClear,
		},
	)
	return cmd
}

func (c *cli) runCacheList(cmd *cobra.Command, args []string) error {
	dir := c.cfg.CacheDir()
	docs, err := source.ListCache(dir)
	if err != nil {
		return fmt.Errorf("listing cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintf(out, "No cached documents in %s\n", dir)
		return nil
	}

	now := time.Now()
	for _, doc := range docs {
		fmt.Fprintf(out, "%-10s %10s  %s\n", ui.FormatAge(now.Sub(doc.FetchedAt)), ui.FormatSize(len(doc.Body)), doc.Ref)
	}
	return nil
}

func (c *cli) runCacheClear(cmd *cobra.Command, args []string) error {
	removed, err := source.ClearCache(c.cfg.CacheDir())
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached documents\n", removed)
	return nil
}
