package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hoppxi/wilux/internal/manager"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// renderSettings marshals s with the timeout written as a duration string.
func renderSettings(s manager.Settings) ([]byte, error) {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["timeout"] = s.Timeout.String()
	return yaml.Marshal(doc)
}

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write a wilux.yaml with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = manager.DefaultConfigPath()
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			reader := bufio.NewReader(cmd.InOrStdin())
			if !confirm(cmd, reader, fmt.Sprintf("%s already exists. Overwrite?", path)) {
				return nil
			}
		}

		data, err := renderSettings(manager.DefaultSettings())
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Config written to", path)
		return nil
	},
}

func confirm(cmd *cobra.Command, r *bufio.Reader, message string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", message)
	input, _ := r.ReadString('\n')
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

func init() {
	generateConfigCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file without asking")
}
