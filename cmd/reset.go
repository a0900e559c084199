/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset {<port> | --serial <sn>}",
	Short: "Power-cycle the USB device behind a serial port",
	Long: `Ask the kernel to reset the USB device a serial port belongs to. A modem
that stopped answering 'find' often comes back without being unplugged.

After the reset the modem re-enumerates and its ttyUSB numbers may shift.
Its interface ids do not, so 'serialprobe map' or 'serialprobe find' will
locate it again.

The device can be named by one of its ports or by the USB serial number
shown by 'serialprobe resolve'. Needs usbreset (usbutils) and root.

Examples:
  sudo serialprobe reset /dev/ttyUSB2
  sudo serialprobe reset -s NC7ILXW1`,
	Args: func(cmd *cobra.Command, args []string) error {
		sn, _ := cmd.Flags().GetString("serial")
		switch {
		case sn == "" && len(args) != 1:
			return errors.New("name the device by port or with --serial")
		case sn != "" && len(args) > 0:
			return errors.New("a port and --serial are mutually exclusive")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !serial.IsUSBResetAvailable() {
			exitOnError(fmt.Errorf("%w: install usbutils", serial.ErrUSBResetNotAvailable))
		}

		resolver, err := openResolver()
		exitOnError(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sn, _ := cmd.Flags().GetString("serial")
		target := sn
		if sn != "" {
			logger.Infow("resetting", "serial", sn)
			err = resolver.ResetUSBDeviceBySerial(ctx, cfg.Dev.Dir, sn)
		} else {
			target = args[0]
			logger.Infow("resetting", "port", target, "interface", resolver.Resolve(target))
			err = resolver.ResetUSBDevice(ctx, target)
		}

		if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
			exitOnError(fmt.Errorf("%s is not backed by a USB device", target))
		}
		exitOnError(err)

		fmt.Printf("%s %s\n", styles.FoundStyle.Render("Reset"), target)
		fmt.Println("Ports may be renumbered; run 'serialprobe map' to see the new nodes")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "USB serial number of the device to reset")
}
