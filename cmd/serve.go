package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovailles/tvharbor/internal/api"
	"github.com/ovailles/tvharbor/internal/config"
	"github.com/ovailles/tvharbor/internal/fetch"
	"github.com/ovailles/tvharbor/internal/ingest"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/shutdown"
	"github.com/ovailles/tvharbor/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog API server",
	Long: `Start the HTTP API. The server owns the in-memory channel collection,
serves playlist/category management and triggers ingestions on demand.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetStoreLogLevel())
		log := logger.AppLogger()

		state, err := store.OpenState(cfg.Storage, cfg.GetStoreLogLevel())
		if err != nil {
			log.Error("failed to open state store", err)
			os.Exit(1)
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
			Cache: fetch.NewCache(
				time.Duration(cfg.Fetch.CacheTTLSeconds)*time.Second,
				cfg.Fetch.CacheMaxEntries,
			),
		})

		debouncer := store.NewDebouncedWriter(time.Duration(cfg.Storage.DebounceMillis) * time.Millisecond)
		ingestSvc := ingest.NewService(state, collection, debouncer, fetcher)
		if err := ingestSvc.Start(); err != nil {
			log.Error("failed to load persisted collection", err)
			os.Exit(1)
		}

		handler := shutdown.New(15 * time.Second)
		handler.Register(func(ctx context.Context) error {
			return state.Close()
		})
		handler.Register(func(ctx context.Context) error {
			ingestSvc.Shutdown()
			return nil
		})

		server := api.NewServer(ingestSvc, state)

		go func() {
			log.WithFields(map[string]interface{}{
				"port": cfg.API.Port,
			}).Info("api server starting")
			if err := server.Run(cfg.API.Port); err != nil {
				log.Error("api server stopped", err)
				handler.TriggerShutdown()
			}
		}()

		handler.Wait()
		fmt.Println("Shutdown complete")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
