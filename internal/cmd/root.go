package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/hoppxi/wilux/internal/logging"
	"github.com/hoppxi/wilux/internal/manager"
	"github.com/hoppxi/wilux/internal/utils"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/hoppxi/wilux/pkg/operation"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version = "0.2.0"

// env is what every command runs against; built once per invocation.
type env struct {
	settings manager.Settings
	log      zerolog.Logger
	runner   utils.Runner
	enum     *displayinfo.Enumerator
	display  *operation.Display
}

var (
	app        *env
	configPath string
	quietLog   bool
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: utils.ExitCode(err), err: err}
}

var rootCmd = &cobra.Command{
	Use:           "wilux",
	Version:       Version,
	Short:         "Display brightness control for internal panels and DDC/CI monitors",
	Long:          "wilux lists connected displays and sets their brightness through brightnessctl and ddcutil",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "generate-config" || cmd.Name() == "help" {
			return nil
		}
		// the alt screen owns the terminal; keep only the file sink
		quietLog = cmd == tuiCmd
		return loadEnv()
	},
}

func loadEnv() error {
	settings, err := manager.Config.Load(configPath)
	if err != nil {
		return err
	}

	opts := settings.Logging()
	opts.Quiet = quietLog
	logger := logging.New(opts)
	zlog.Logger = logger

	runner := utils.NewExecRunner(settings.Timeout)
	app = &env{
		settings: settings,
		log:      logger,
		runner:   runner,
		enum:     displayinfo.NewEnumerator(runner, settings.Enumerator(), logger),
		display:  operation.NewDisplay(runner, settings.Display(), logger),
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/wilux/wilux.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("policy", "", "discovery failure policy: strict or fallback")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("discovery.policy", flags.Lookup("policy"))

	rootCmd.AddCommand(outputsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(dialogCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(generateConfigCmd)
}
