package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/keys"
	"github.com/nhle/recruit-inbox/internal/ui/inbox"
)

type WatchCmd struct {
	flags       *Flags
	metricsAddr string
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Open the live inbox",
		UsageText: "inbox watch [--metrics-addr :9090]",
		Description: `Opens a terminal UI that polls threads, messages, and notifications.

Logs are held back while the UI is open and printed after it exits.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "metrics-addr",
				Usage:       "serve Prometheus metrics on this address",
				Sources:     cli.EnvVars("INBOX_METRICS_ADDR"),
				Destination: &cmd.metricsAddr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, _ *cli.Command) error {
	s, err := cmd.flags.attach(ctx, true)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer s.close()

	addr := cmd.metricsAddr
	if addr == "" {
		addr = cmd.flags.Config.Metrics.Addr
	}
	if addr != "" {
		srv := serveMetrics(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	m := inbox.New(ctx, s.engine, keys.DefaultKeyMap())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
