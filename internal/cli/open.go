package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"wallview/internal/tui"
)

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a wallpaper image in the default viewer",
	Args:  cobra.ExactArgs(1),
	Run:   runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) {
	fmt.Printf("Opening %s...\n", args[0])
	if err := tui.OpenInViewer(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening viewer: %v\n", err)
		os.Exit(1)
	}
}
