package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/ncruces/zenity"
	"github.com/spf13/cobra"
)

var dialogCmd = &cobra.Command{
	Use:   "dialog [output]",
	Short: "Pick a display and brightness from a desktop dialog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		outputs := displayinfo.SortOutputs(app.enum.ListOutputs(ctx))

		var out displayinfo.Output
		if len(args) == 1 {
			out = displayinfo.NewOutput(args[0])
		} else {
			if len(outputs) == 0 {
				return zenity.Error("No displays detected", zenity.Title("Brightness"))
			}
			out = outputs[0]
			if len(outputs) > 1 {
				items := make([]string, len(outputs))
				for i, o := range outputs {
					items[i] = o.ID
				}
				picked, err := zenity.List("Display", items, zenity.Title("Brightness"), zenity.DefaultItems(items[0]), zenity.DisallowEmpty())
				switch {
				case errors.Is(err, zenity.ErrCanceled):
					return nil
				case err != nil:
					return err
				}
				out = displayinfo.NewOutput(picked)
			}
		}

		current := brightness.Percent(app.display.GetRatio(ctx, out))
		text, err := zenity.Entry(
			fmt.Sprintf("%s brightness (5-100%%)", displayinfo.DisplayName(out)),
			zenity.Title("Brightness"),
			zenity.EntryText(strconv.Itoa(current)),
		)
		switch {
		case errors.Is(err, zenity.ErrCanceled):
			return nil
		case err != nil:
			return err
		}

		v, err := brightness.ParseInput(text)
		if err != nil {
			return zenity.Error(fmt.Sprintf("Invalid brightness %q", text), zenity.Title("Brightness"))
		}
		q, _ := brightness.Snap(v)

		res := app.display.Apply(ctx, out, q)
		app.display.LogResult(res)
		return resultError(res)
	},
}
