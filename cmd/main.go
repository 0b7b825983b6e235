package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovailles/tvharbor/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tvharbor",
	Short: "TVHarbor ingests IPTV catalogs and keeps user state across re-fetches",
	Long: `TVHarbor pulls channel catalogs from M3U playlist files, portal APIs and
addon manifests, normalizes them into one collection, and reconciles every
re-fetch so favorites and category assignments survive provider churn.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of TVHarbor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("TVHarbor v0.1.0")
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yml)")
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Skip config loading for version command
	if len(os.Args) > 1 && os.Args[1] == "version" {
		return
	}

	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
