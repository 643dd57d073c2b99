package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ftahirops/drivelog/config"
	"github.com/ftahirops/drivelog/ui"
)

// runGenerations prints the stored identity generations.
func runGenerations(cfg config.Config, stdout io.Writer) error {
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.Identities(ctx, cfg.Host)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, ui.RenderGenerations(snaps, time.Now()))
	return nil
}

// runBrowse starts the interactive browser.
func runBrowse(cfg config.Config) error {
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	p := tea.NewProgram(ui.NewBrowser(st, cfg.Host), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
