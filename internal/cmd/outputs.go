package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputInfo struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Backend string  `json:"backend" yaml:"backend"`
	Ratio   float64 `json:"ratio" yaml:"ratio"`
	Percent int     `json:"percent" yaml:"percent"`
}

func collectOutputs(ctx context.Context) []outputInfo {
	outputs := displayinfo.SortOutputs(app.enum.ListOutputs(ctx))
	ratios := app.display.ReadAll(ctx, outputs)

	infos := make([]outputInfo, len(outputs))
	for i, o := range outputs {
		infos[i] = outputInfo{
			ID:      o.ID,
			Name:    displayinfo.DisplayName(o),
			Backend: o.Backend.Kind.String(),
			Ratio:   ratios[i],
			Percent: brightness.Percent(ratios[i]),
		}
	}
	return infos
}

var outputsCmd = &cobra.Command{
	Use:     "outputs",
	Aliases: []string{"ls", "list"},
	Short:   "List connected displays and their brightness",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := collectOutputs(cmd.Context())
		out := cmd.OutOrStdout()

		asJSON, _ := cmd.Flags().GetBool("json")
		asYAML, _ := cmd.Flags().GetBool("yaml")

		switch {
		case asJSON:
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		case asYAML:
			data, err := yaml.Marshal(infos)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
		default:
			if len(infos) == 0 {
				fmt.Fprintln(out, "No displays detected")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OUTPUT\tNAME\tBACKEND\tBRIGHTNESS")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\n", info.ID, info.Name, info.Backend, info.Percent)
			}
			return w.Flush()
		}
		return nil
	},
}

func init() {
	outputsCmd.Flags().Bool("json", false, "Output in json format")
	outputsCmd.Flags().Bool("yaml", false, "Output in yaml format")
}
