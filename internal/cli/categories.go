package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List wallpaper categories",
	Args:  cobra.NoArgs,
	Run:   runCategories,
}

func init() {
	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "Print categories as JSON")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) {
	if err := listCategories(cmd.Context(), os.Stdout, categoriesJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error listing categories: %v\n", err)
		os.Exit(1)
	}
}

func listCategories(ctx context.Context, out io.Writer, asJSON bool) error {
	s, err := openSession(os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	cats, err := s.client.FetchCategories(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cats)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, c := range cats {
		marker := ""
		if c.ID == cfg.Category {
			marker = " *"
		}
		fmt.Fprintf(w, "%d\t%s%s\n", c.ID, c.Name, marker)
	}
	return w.Flush()
}
