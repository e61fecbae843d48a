package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

var (
	cacheStatsJSON bool
	cacheClearAll  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the document cache",
	Long:  `Inspect and clear the persistent cache of extracted document artifacts.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove expired cache entries",
	Long: `Remove cache entries past their TTL.

With --all, every entry and every downloaded document is removed.`,
	RunE: runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().BoolVar(&cacheStatsJSON, "json", false, "output stats as JSON")
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "remove everything, not just expired entries")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	stats, err := documentService.CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	if cacheStatsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Entries:   %d (%d bytes)\n", stats.Entries, stats.TotalBytes)

	kinds := make([]string, 0, len(stats.EntriesByKind))
	for kind := range stats.EntriesByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		k := domain.EntryKind(kind)
		cmd.Printf("  %-10s %d (%d bytes)\n", kind, stats.EntriesByKind[k], stats.BytesByKind[k])
	}

	cmd.Printf("Downloads: %d (%d bytes)\n", stats.Blobs, stats.BlobBytes)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	result, err := documentService.ClearCache(cmd.Context(), cacheClearAll)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	if cacheClearAll {
		cmd.Printf("Removed %d entries and %d downloads\n", result.EntriesRemoved, result.BlobsRemoved)
	} else {
		cmd.Printf("Removed %d expired entries\n", result.EntriesRemoved)
	}
	return nil
}
