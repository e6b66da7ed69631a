package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"wallview/internal/config"
	"wallview/pkg/models"
)

// cfg starts from the environment; persistent flags override it.
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:     models.AppName,
	Short:   "Wallpaper browser",
	Long:    `wallview pages through an online wallpaper catalogue by category or keyword, in the terminal or as plain listings.`,
	Version: models.Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Wallpaper API endpoint")
	pf.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Records requested per page")
	pf.IntVar(&cfg.Category, "category", cfg.Category, "Category to load")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "Timeout for each API request")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
