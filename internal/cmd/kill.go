package cmd

import (
	"fmt"
	"strings"

	"github.com/hoppxi/wilux/internal/manager"
	"github.com/spf13/cobra"
)

func sendDaemon(cmd *cobra.Command, command string) error {
	response, err := manager.SendIPCCommand(command)
	if err != nil {
		return fmt.Errorf("%w (is the daemon running?)", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), response)
	if strings.HasPrefix(response, "ERR") {
		return fmt.Errorf("daemon rejected %s", command)
	}
	return nil
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendDaemon(cmd, "STOP")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendDaemon(cmd, "STATUS")
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Make the daemon re-read its config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendDaemon(cmd, "RELOAD")
	},
}
