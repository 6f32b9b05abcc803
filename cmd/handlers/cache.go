package handlers

import (
	"fmt"
	"io"

	"carbonlens/internal/config"
	"carbonlens/internal/logger"
	"carbonlens/internal/store"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the evidence cache",
		Long:  `Inspect, invalidate, and clear the cached social and report evidence.`,
	}

	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheBumpCmd())
	cacheCmd.AddCommand(newCacheClearCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Long:  `Display the number of cached entries per store and whether they match the current cache version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaches(config.Get(), func(c *store.Caches) error {
				return printCacheStats(cmd.OutOrStdout(), c)
			})
		},
	}
}

func newCacheBumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bump",
		Short: "Invalidate every cached evidence set",
		Long:  `Start a new cache epoch. Entries written before the bump are ignored and overwritten by the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaches(config.Get(), func(c *store.Caches) error {
				if err := c.BumpVersion(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Cache invalidated")
				return nil
			})
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache (removes all cached evidence)",
		Long:  `Remove every cached social and report evidence set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm && !confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache clear cancelled")
				return nil
			}
			return withCaches(config.Get(), func(c *store.Caches) error {
				return clearCaches(cmd.OutOrStdout(), c)
			})
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

func withCaches(cfg *config.Config, fn func(*store.Caches) error) error {
	caches, err := store.Open(cfg.Cache, cfg.Document.Keywords)
	if err != nil {
		return err
	}
	defer func() {
		if err := caches.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()
	return fn(caches)
}

func printCacheStats(out io.Writer, caches *store.Caches) error {
	fmt.Fprintln(out, "📊 Cache Statistics")
	fmt.Fprintln(out, "==================")

	for _, c := range []*store.EvidenceCache{caches.Social, caches.Document} {
		stats := c.Stats()
		state := "valid"
		if !stats.Valid {
			state = "stale"
		}
		fmt.Fprintf(out, "%-9s %d entries (%s)\n", stats.Kind+":", stats.Entries, state)
	}

	stats := caches.Social.Stats()
	fmt.Fprintf(out, "🏷️  Version: %s\n", stats.Version)
	if !stats.StoredMeta.Timestamp.IsZero() {
		fmt.Fprintf(out, "📅 Last bumped: %s\n", stats.StoredMeta.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func clearCaches(out io.Writer, caches *store.Caches) error {
	fmt.Fprintln(out, "🗑️  Clearing cache...")
	if err := caches.Social.Clear(); err != nil {
		return err
	}
	if err := caches.Document.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Cache cleared successfully")
	return nil
}

func confirmPrompt(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "⚠️  This will remove all cached evidence. Continue? [y/N]: ")
	var response string
	if _, err := fmt.Fscanln(in, &response); err != nil {
		return false
	}
	return response == "y" || response == "Y" || response == "yes"
}
