package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"wallview/internal/tui"
	"wallview/internal/viewer"
)

var browseCmd = &cobra.Command{
	Use:   "browse [keyword]",
	Short: "Browse wallpapers interactively",
	Run:   runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) {
	if err := browse(cmd.Context(), strings.Join(args, " ")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func browse(ctx context.Context, query string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.ErrNotTerminal
	}

	// The alternate screen owns the terminal, so logs go nowhere unless
	// --log-file is set.
	s, err := openSession(io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(s.gallery, viewer.New(), s.client,
		tui.WithQuery(query),
		tui.WithContext(ctx),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := tui.Subscribe(p, s.gallery)
	defer unsubscribe()

	s.logger.Info("browser started", "category", cfg.Category, "query", query)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
