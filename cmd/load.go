package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovailles/tvharbor/internal/config"
	"github.com/ovailles/tvharbor/internal/fetch"
	"github.com/ovailles/tvharbor/internal/ingest"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load [playlist-id]",
	Short: "Run one ingestion for a playlist and exit",
	Long: `Fetch and parse a playlist's source, reconcile the result with saved
favorites and category assignments, and persist the merged collection.

Without an argument the last-loaded playlist is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		timeoutMinutes, _ := cmd.Flags().GetInt("timeout-minutes")

		cfg := config.Get()
		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetStoreLogLevel())
		log := logger.AppLogger()

		state, err := store.OpenState(cfg.Storage, cfg.GetStoreLogLevel())
		if err != nil {
			log.Error("failed to open state store", err)
			os.Exit(1)
		}
		defer state.Close()

		playlistID := ""
		if len(args) > 0 {
			playlistID = args[0]
		} else {
			playlistID, err = state.LastLoadedPlaylist()
			if err != nil {
				log.Error("failed to read last-loaded pointer", err)
				os.Exit(1)
			}
			if playlistID == "" {
				fmt.Fprintln(os.Stderr, "No playlist id given and none was loaded before")
				os.Exit(1)
			}
		}

		collection := store.NewCollectionStore(store.CollectionOptions{
			DataDir:        cfg.Storage.DataDir,
			CollectionFile: cfg.Storage.CollectionFile,
			LegacyDataDir:  cfg.Storage.LegacyDataDir,
			MinFreeSpaceMB: cfg.Storage.MinFreeSpaceMB,
		})

		fetcher := fetch.NewClient(fetch.Options{
			Timeout:       time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			RetryAttempts: cfg.Fetch.RetryAttempts,
		})

		debouncer := store.NewDebouncedWriter(time.Duration(cfg.Storage.DebounceMillis) * time.Millisecond)
		ingestSvc := ingest.NewService(state, collection, debouncer, fetcher)
		if err := ingestSvc.Start(); err != nil {
			log.Error("failed to load persisted collection", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMinutes)*time.Minute)
		defer cancel()

		stats, err := ingestSvc.Load(ctx, playlistID)
		// Always flush the pending write before reporting
		ingestSvc.Shutdown()
		if err != nil {
			log.Error("ingestion failed", err)
			os.Exit(1)
		}

		fmt.Println("=== Ingestion complete ===")
		fmt.Printf("Playlist:  %s\n", stats.PlaylistID)
		fmt.Printf("Parsed:    %d channels\n", stats.Parsed)
		fmt.Printf("Restored:  %d with saved state\n", stats.Restored)
		fmt.Printf("Total:     %d in collection\n", stats.Total)
		fmt.Printf("Elapsed:   %s\n", stats.Elapsed.Round(time.Millisecond))
	},
}

func init() {
	loadCmd.Flags().Int("timeout-minutes", 10, "abort the ingestion after this many minutes")
	rootCmd.AddCommand(loadCmd)
}
