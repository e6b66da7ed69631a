package cli

import (
	"io"
	"log/slog"

	"wallview/internal/gallery"
	"wallview/pkg/wallpaperapi"
)

var _ gallery.Fetcher = (*wallpaperapi.Client)(nil)

// session bundles what every command needs: a logger, an API client and a
// gallery bound to that client.
type session struct {
	logger   *slog.Logger
	client   *wallpaperapi.Client
	gallery  *gallery.State
	closeLog func() error
}

func openSession(logOut io.Writer) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, closeLog, err := cfg.NewLogger(logOut)
	if err != nil {
		return nil, err
	}

	client, err := wallpaperapi.New(wallpaperapi.Options{
		BaseURL:  cfg.APIURL,
		PageSize: cfg.PageSize,
		Timeout:  cfg.HTTPTimeout,
		Logger:   logger,
	})
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	g := gallery.New(client,
		gallery.WithDefaultCategory(cfg.Category),
		gallery.WithLogger(logger),
	)
	return &session{logger: logger, client: client, gallery: g, closeLog: closeLog}, nil
}

func (s *session) Close() error {
	return s.closeLog()
}
