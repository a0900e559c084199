/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/allbin/go-serialprobe"
	"github.com/spf13/cobra"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <port>",
	Short: "Display the USB interface behind a serial port",
	Long: `Display the USB interface id of a serial port and the metadata of the
USB device it belongs to.

Examples:
  serialprobe resolve /dev/ttyUSB0
  serialprobe resolve /dev/ttyModem   # symlinks are followed

The interface id (e.g. 1-1.2:1.0) is stable across reconnects at the same
physical USB port, unlike the ttyUSB number.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		if resolved, err := filepath.EvalSymlinks(portPath); err == nil {
			portPath = resolved
		}

		resolver, err := openResolver()
		exitOnError(err)

		info, err := resolver.Describe(portPath)
		if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
			fmt.Printf("Port Information: %s\n\n", portPath)
			fmt.Printf("  Description: %s\n", serial.PortDescription(filepath.Base(portPath)))
			fmt.Printf("  Interface:   %s\n", serial.NotFound)
			return
		}
		exitOnError(err)

		renderUSBInfo(os.Stdout, portPath, info)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func renderUSBInfo(w io.Writer, portPath string, info *serial.USBInfo) {
	fmt.Fprintf(w, "Port Information: %s\n\n", portPath)
	fmt.Fprintf(w, "  Description: %s\n", serial.PortDescription(filepath.Base(portPath)))
	fmt.Fprintf(w, "  Interface:   %s\n", info.Interface)

	fmt.Fprintln(w, "\nUSB Device Information:")
	for _, field := range []struct{ label, value string }{
		{"Vendor ID", info.VendorID},
		{"Product ID", info.ProductID},
		{"Serial", info.SerialNumber},
		{"Interface #", info.InterfaceNumber},
		{"Bus", info.BusNumber},
		{"Device", info.DeviceNumber},
		{"Manufacturer", info.Manufacturer},
		{"Product", info.Product},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", field.label+":", field.value)
		}
	}
}
