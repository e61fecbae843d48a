// Package cli implements the cobra command-line interface for Folio.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folio-mcp/internal/adapters/driven/config/file"
	enginepdfcpu "github.com/folio-labs/folio-mcp/internal/adapters/driven/engine/pdfcpu"
	"github.com/folio-labs/folio-mcp/internal/adapters/driven/fetch"
	"github.com/folio-labs/folio-mcp/internal/adapters/driven/storage/blob"
	"github.com/folio-labs/folio-mcp/internal/adapters/driven/storage/sqlite"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driving"
	"github.com/folio-labs/folio-mcp/internal/core/services"
	"github.com/folio-labs/folio-mcp/internal/logger"
)

var (
	version = "dev"
	verbose bool

	// Wired by initServices; tests inject their own implementations.
	configStore     driven.ConfigStore
	documentService driving.DocumentService
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "PDF document tools with a persistent cache",
	Long: `Folio reads, searches and extracts from PDF documents, local or remote,
through a persistent on-disk cache, and exposes the same operations to
AI assistants over the Model Context Protocol.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices wires the adapters into the document service. It is a
// no-op when a service is already present, which is how tests inject
// their own.
func initServices() error {
	if documentService != nil {
		return nil
	}

	store, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore = store

	cacheDir := store.GetString("cache.dir")
	blobDir := ""
	if cacheDir != "" {
		blobDir = filepath.Join(cacheDir, "downloads")
	}

	index, err := sqlite.NewIndex(cacheDir)
	if err != nil {
		return fmt.Errorf("opening cache index: %w", err)
	}
	blobs, err := blob.NewStore(blobDir)
	if err != nil {
		return fmt.Errorf("opening download store: %w", err)
	}

	var fetchOpts fetch.Options
	if secs := store.GetInt("fetch.timeout_seconds"); secs > 0 {
		fetchOpts.Timeout = time.Duration(secs) * time.Second
	}
	fetcher := fetch.New(fetchOpts)

	var opts []services.DocumentServiceOption
	if hours := store.GetInt("cache.ttl_hours"); hours > 0 {
		opts = append(opts, services.WithTTL(time.Duration(hours)*time.Hour))
	}
	if maxBytes := store.GetInt("fetch.max_bytes"); maxBytes > 0 {
		opts = append(opts, services.WithMaxFetchBytes(int64(maxBytes)))
	}

	documentService = services.NewDocumentService(fetcher, blobs, index, enginepdfcpu.New(), opts...)

	// Sweep expired entries on startup; a failed sweep is logged, never fatal.
	if removed, err := index.ClearExpired(context.Background(), time.Now()); err != nil {
		logger.Warn("Startup cache sweep failed: %v", err)
	} else if removed > 0 {
		logger.Debug("Startup cache sweep removed %d expired entries", removed)
	}

	return nil
}
