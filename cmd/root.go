// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vinyl-shelf",
	Short: "Maintain the vinyl shelf album catalog",
	Long: `vinyl-shelf looks records up on a music metadata service, builds catalog
entries with their track listings, downloads cover art and merges the
result into the site's catalog file.

It also derives the people index from credits, searches and validates
the catalog, and downsizes cover art for the site.`,
	SilenceErrors: true,
	// Argument errors print usage; failures after that do not.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true
	},
}

// Execute adds all child commands to the root command and runs it with a
// context canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./vinyl-shelf.yaml or $HOME/.vinyl-shelf.yaml)")
	flags.String("catalog", "src/utils/catalog.json", "path to the catalog file")
	flags.String("format", "", "catalog encoding: json or module (default: inferred from the extension)")
	flags.String("covers-dir", "public/covers", "directory cover art is saved to")
	flags.String("cover-url-prefix", "/twc-vinyl-shelf/covers/", "site URL prefix for saved covers")
	flags.String("provider", config.ProviderTidal, "metadata provider: tidal or itunes")
	flags.String("placement", config.PlacementPreserve, "where new entries go: preserve (append) or first")
	flags.String("country", "US", "catalog country code for provider lookups")
	flags.Duration("request-delay", 400*time.Millisecond, "minimum delay between provider requests")
	flags.Bool("no-cache", false, "disable the lookup cache")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	bind := map[string]string{
		"catalog_path":        "catalog",
		"catalog_format":      "format",
		"covers_dir":          "covers-dir",
		"cover_url_prefix":    "cover-url-prefix",
		"provider":            "provider",
		"new_entry_placement": "placement",
		"country":             "country",
		"request_delay":       "request-delay",
		"no_cache":            "no-cache",
		"metrics_file":        "metrics-file",
		"log_level":           "log-level",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(addAlbumCmd)
	rootCmd.AddCommand(addSinglesCmd)
	rootCmd.AddCommand(findCoversCmd)
	rootCmd.AddCommand(findAlbumsCmd)
	rootCmd.AddCommand(optimizeCoversCmd)
	rootCmd.AddCommand(peopleCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(validateCmd)
}

func initConfig() {
	config.LoadDotEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if _, err := os.Stat("vinyl-shelf.yaml"); err == nil {
		viper.SetConfigFile("vinyl-shelf.yaml")
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vinyl-shelf")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()
}
