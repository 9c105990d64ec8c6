package main

import (
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/internal/tui"
)

func uiCmd(opts *rootOptions) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive instance view",
		Long: `Open the interactive instance view.

Keys:
  enter   change to the selected type
  r       switch to the next region
  /       filter types
  q       quit (an in-flight change is abandoned)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the program; logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := setupLogging(w, opts.logLevel); err != nil {
				return err
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			e, err := newEnv(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			err = tui.Run(cmd.Context(), tui.Options{
				Manager:        e.manager,
				Page:           e.page,
				Action:         e.action(),
				RegionEndpoint: e.page.URL(cfg.RegionPath),
				Types:          cfg.Types,
				Logger:         slog.Default().With("component", "region"),
				ProgramOptions: []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(cmd.Context())},
			})
			if err != nil {
				return errors.New("E142").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}
