package cmd

import (
	"github.com/hoppxi/wilux/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive brightness sliders for every connected display",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(app.enum, app.display, app.settings.Timeout, app.log)
	},
}
