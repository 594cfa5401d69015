package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoppxi/wilux/internal/manager"
	"github.com/hoppxi/wilux/internal/notify"
	"github.com/hoppxi/wilux/internal/subscribe"
	"github.com/hoppxi/wilux/internal/watchers"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the brightness daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		if conn, err := manager.ConnectIPC(); err == nil {
			conn.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon already running.")
			return nil
		}

		m := manager.New(app.settings, app.runner, app.log)

		osd, err := notify.NewOSD()
		if err != nil {
			app.log.Warn().Err(err).Msg("notifications disabled")
		} else {
			defer osd.Close()
			m.SetNotifier(osd)
		}

		manager.Config.Watch(m.Reload, func(err error) {
			app.log.Error().Err(err).Msg("config reload rejected")
		})

		m.StartWatcher(watchers.DisplayWatcher{
			Events:   subscribe.DisplayEvents,
			Refresh:  m.Refresh,
			Debounce: 200 * time.Millisecond,
		}.Run)

		serveErr := make(chan error, 1)
		go func() { serveErr <- m.Serve(manager.SocketPath()) }()

		fmt.Fprintln(cmd.OutOrStdout(), "Daemon started. Press Ctrl+C to stop.")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		var runErr error
		select {
		case <-sigChan:
			app.log.Info().Msg("received shutdown signal")
		case <-m.Done():
			app.log.Info().Msg("stopped over IPC")
		case runErr = <-serveErr:
		}

		m.StopAll()
		return runErr
	},
}
