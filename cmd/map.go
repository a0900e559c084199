/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/components"
	"github.com/allbin/go-serialprobe/internal/tui/models"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	"github.com/spf13/cobra"
)

const mapRule = "--------------------------------------------------------------"

// mapCmd represents the map command
var mapCmd = &cobra.Command{
	Use:   "map [--links | --phys | --all]",
	Short: "Show which USB interface backs each serial device",
	Long: `Map serial device nodes to the USB interfaces behind them.

--links  only symlinks in the device directory that point at USB serial
         nodes (e.g. udev rules creating /dev/ttyModem -> ttyUSB2)
--phys   only the USB serial nodes themselves (ttyUSB0-31, ttyACM0-31)
--all    both (default)

Each row shows the virtual device (or -), the physical device and the
USB interface id (or N/A).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		links, _ := cmd.Flags().GetBool("links")
		phys, _ := cmd.Flags().GetBool("phys")
		tableFormat, _ := cmd.Flags().GetBool("table")

		scope := models.ScopeAll
		switch {
		case links:
			scope = models.ScopeLinks
		case phys:
			scope = models.ScopePhysical
		}

		resolver, err := openResolver()
		exitOnError(err)

		mappings, err := collectMappings(resolver, scope)
		exitOnError(err)

		if tableFormat {
			renderMappingTable(os.Stdout, cfg.Dev.Dir, mappings)
		} else {
			renderMappings(os.Stdout, cfg.Dev.Dir, mappings)
		}
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().Bool("links", false, "show symlinked (virtual) devices only")
	mapCmd.Flags().Bool("phys", false, "show physical devices only")
	mapCmd.Flags().Bool("all", false, "show virtual and physical devices (default)")
	mapCmd.MarkFlagsMutuallyExclusive("links", "phys", "all")
	mapCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	mapCmd.Flags().StringSlice("classes", nil, "recognized device name prefixes (default ttyUSB,ttyACM)")
	mapCmd.Flags().Int("max-index", 32, "physical scan checks <class>0 up to <class>N-1")

	bindFlag("map.classes", mapCmd.Flags().Lookup("classes"))
	bindFlag("map.max_index", mapCmd.Flags().Lookup("max-index"))
}

// collectMappings enumerates symlinks first, then physical nodes
func collectMappings(resolver *serial.Resolver, scope models.Scope) ([]serial.DeviceMapping, error) {
	enumerator := serial.NewEnumerator(resolver, cfg.Map.Classes, logger)

	var mappings []serial.DeviceMapping
	if scope != models.ScopePhysical {
		links, err := enumerator.EnumerateSymlinks(cfg.Dev.Dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", cfg.Dev.Dir, err)
		}
		mappings = append(mappings, links...)
	}
	if scope != models.ScopeLinks {
		prefixes := serial.PhysicalPrefixes(cfg.Dev.Dir, cfg.Map.Classes)
		mappings = append(mappings, enumerator.EnumeratePhysical(prefixes, cfg.Map.MaxIndex)...)
	}
	return mappings, nil
}

// renderMappings prints the plain listing
func renderMappings(w io.Writer, devDir string, mappings []serial.DeviceMapping) {
	fmt.Fprintln(w, "Virtual serial device mappings:")
	fmt.Fprintln(w, mapRule)
	fmt.Fprintf(w, " %-20s %-14s %s\n", "Virtual", "Physical", "Interface")

	for _, m := range mappings {
		virtual := "-"
		if m.Virtual != "" {
			virtual = components.DevSuffix(devDir, m.Virtual)
		}
		fmt.Fprintf(w, " %-20s %-14s %s\n", virtual, components.DevSuffix(devDir, m.Physical), m.Interface)
	}
}

// renderMappingTable renders the listing with lipgloss styles
func renderMappingTable(w io.Writer, devDir string, mappings []serial.DeviceMapping) {
	fmt.Fprintf(w, "Found %d mapping(s):\n\n", len(mappings))

	header := fmt.Sprintf("%-20s %-14s %-16s", "Virtual", "Physical", "Interface")
	fmt.Fprintln(w, styles.HeaderStyle.Render(header))

	for _, m := range mappings {
		virtual := "-"
		if m.Virtual != "" {
			virtual = components.DevSuffix(devDir, m.Virtual)
		}
		iface := styles.FoundStyle.Render(m.Interface.String())
		if m.Interface == serial.NotFound {
			iface = styles.MissingStyle.Render(m.Interface.String())
		}
		row := fmt.Sprintf("%-20s %-14s ", virtual, components.DevSuffix(devDir, m.Physical))
		fmt.Fprintln(w, styles.CellStyle.Render(row)+iface)
	}
}
