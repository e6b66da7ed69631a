package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"wallview/internal/gallery"
)

var (
	listPages int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallpapers in a category",
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	listCmd.Flags().IntVar(&listPages, "pages", 1, "Number of pages to fetch")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	if err := listWallpapers(cmd.Context(), os.Stdout, listPages, listJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error listing wallpapers: %v\n", err)
		os.Exit(1)
	}
}

func listWallpapers(ctx context.Context, out io.Writer, pages int, asJSON bool) error {
	s, err := openSession(os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := collect(ctx, s.gallery, s.gallery.Load, pages)
	if err != nil {
		return err
	}
	return printWallpapers(out, snap, asJSON)
}

// collect runs first, then keeps loading until pages pages have been
// fetched or the collection is exhausted.
func collect(ctx context.Context, g *gallery.State, first func(context.Context) error, pages int) (gallery.Snapshot, error) {
	if err := first(ctx); err != nil {
		return gallery.Snapshot{}, err
	}
	for i := 1; i < pages; i++ {
		if !g.Snapshot().HasMore {
			break
		}
		if err := g.Load(ctx); err != nil {
			return gallery.Snapshot{}, err
		}
	}
	return g.Snapshot(), nil
}

func printWallpapers(out io.Writer, snap gallery.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Wallpapers)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tID\tRESOLUTION\tTAGS\tURL")
	for i, wp := range snap.Wallpapers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.30s\t%s\n",
			i+1,
			wp.ID,
			wp.Resolution,
			strings.Join(wp.Tags(), " "),
			wp.URL,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if snap.HasMore {
		fmt.Fprintf(out, "%d shown, more available\n", snap.Total())
	} else {
		fmt.Fprintf(out, "%d shown, end of results\n", snap.Total())
	}
	return nil
}
