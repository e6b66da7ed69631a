package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchPages int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search wallpapers by keyword",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchPages, "pages", 1, "Number of pages to fetch")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if err := searchWallpapers(cmd.Context(), os.Stdout, keyword, searchPages, searchJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error searching wallpapers: %v\n", err)
		os.Exit(1)
	}
}

func searchWallpapers(ctx context.Context, out io.Writer, keyword string, pages int, asJSON bool) error {
	if keyword == "" {
		return fmt.Errorf("empty keyword")
	}
	s, err := openSession(os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	search := func(ctx context.Context) error {
		return s.gallery.SearchWallpapers(ctx, keyword)
	}
	snap, err := collect(ctx, s.gallery, search, pages)
	if err != nil {
		return err
	}
	return printWallpapers(out, snap, asJSON)
}
