/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of serial device mappings",
	Long: `Show serial device mappings and refresh them periodically, so nodes that
are renumbered after a modem reconnects or resets can be followed by their
USB interface id.

Keys: r refresh, tab cycle all/links/physical, ? help, q quit.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resolver, err := openResolver()
		exitOnError(err)

		// log lines would tear the alternate screen
		logger = zap.NewNop().Sugar()

		source := func(scope models.Scope) ([]serial.DeviceMapping, error) {
			return collectMappings(resolver, scope)
		}

		model := models.NewWatchModel(source, cfg.Dev.Dir, cfg.Watch.Interval)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		exitOnError(err)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "refresh interval (default 2s)")
	bindFlag("watch.interval", watchCmd.Flags().Lookup("interval"))
}
