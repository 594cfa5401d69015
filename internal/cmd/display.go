package cmd

import (
	"fmt"
	"strings"

	"github.com/hoppxi/wilux/internal/utils"
	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/hoppxi/wilux/pkg/operation"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <output>",
	Short: "Print the brightness ratio of a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := displayinfo.NewOutput(args[0])

		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			reading, err := app.display.Read(cmd.Context(), out)
			if err != nil {
				return withExitCode(err)
			}
			if !reading.Valid() {
				return withExitCode(fmt.Errorf("max brightness %d: %w", reading.Max, utils.ErrMalformedOutput))
			}
			printRatio(cmd, reading.Ratio())
			return nil
		}

		printRatio(cmd, app.display.GetRatio(cmd.Context(), out))
		return nil
	},
}

func printRatio(cmd *cobra.Command, ratio float64) {
	if percent, _ := cmd.Flags().GetBool("percent"); percent {
		fmt.Fprintf(cmd.OutOrStdout(), "%d%%\n", brightness.Percent(ratio))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", ratio)
}

func resultError(res operation.Result) error {
	switch res.Outcome {
	case operation.Applied:
		return nil
	default:
		return withExitCode(fmt.Errorf("%s: %s: %w", res.Output, res.Outcome, res.Err))
	}
}

var setCmd = &cobra.Command{
	Use:   "set <output> <ratio|percent%>",
	Short: "Set display brightness, snapped to 5% steps",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := brightness.ParseInput(args[1])
		if err != nil {
			return fmt.Errorf("invalid brightness %q", args[1])
		}
		q, _ := brightness.Snap(v)

		res := app.display.Apply(cmd.Context(), displayinfo.NewOutput(args[0]), q)
		app.display.LogResult(res)
		if err := resultError(res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%%\n", res.Output, res.Percent)
		return nil
	},
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <output> <expr>",
	Short: "Change brightness relative to the current value",
	Long: `Evaluate an expression over the current brightness and apply the result.
"ratio" is the current value in 0..1 and "percent" the same in 0..100.

  wilux adjust eDP-1 "ratio + 0.1"
  wilux adjust HDMI-1 "percent - 10"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.display.Adjust(cmd.Context(), displayinfo.NewOutput(args[0]), strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		app.display.LogResult(res)
		if err := resultError(res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%%\n", res.Output, res.Percent)
		return nil
	},
}

func init() {
	getCmd.Flags().Bool("strict", false, "Fail with a distinct exit code instead of reporting 1.00 when the backend fails")
	getCmd.Flags().Bool("percent", false, "Print as a percentage")
}
