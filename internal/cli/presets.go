package cli

import (
	"github.com/spf13/cobra"

	"github.com/zhouzirui/wp-fixit/backend/internal/console"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the common-issue shortcuts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := preset.Load(cfg.Presets.File)
		if err != nil {
			return err
		}
		console.PrintPresets(cmd.OutOrStdout(), presets)
		return nil
	},
}
