/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/config"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <data> <port>",
	Short: "Send a command to one serial port and print the reply",
	Long: `Send data to a single serial port and print whatever arrives within the
read timeout. This is the exchange 'find' performs on every candidate, useful
for checking one modem by hand.

Data escapes such as \r and \n are expanded. With --hex the data is parsed as
hexadecimal instead.

Examples:
  serialprobe send 'AT\r\n' /dev/ttyUSB2
  serialprobe send 'ATI\r' /dev/ttyUSB2 --timeout 2s
  serialprobe send --hex 41540d0a /dev/ttyUSB2`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		data, err := parseSendData(args[0], hexMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid data: %v\n", err)
			os.Exit(1)
		}

		exitOnError(sendData(os.Stdout, args[1], data, timeout, cfg.Probe.PortOptions()...))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "interpret data as hexadecimal (e.g. 41540d0a for AT\\r\\n)")
	sendCmd.Flags().Duration("timeout", time.Second, "time to wait for a reply")
}

func parseSendData(data string, hexMode bool) ([]byte, error) {
	if hexMode {
		data = strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(data)
		return hex.DecodeString(data)
	}
	expanded, err := config.ExpandEscapes(data)
	if err != nil {
		return nil, err
	}
	return []byte(expanded), nil
}

func sendData(w io.Writer, portPath string, data []byte, timeout time.Duration, opts ...serial.Option) error {
	port, err := serial.Open(portPath, opts...)
	if err != nil {
		return err
	}
	defer port.Close()

	logger.Debugw("sending", "port", portPath, "bytes", len(data))
	if _, err := port.Write(data); err != nil {
		return err
	}

	reply, err := port.ReadWithTimeout(timeout)
	if err != nil {
		return err
	}

	if len(reply) == 0 {
		fmt.Fprintln(w, styles.NotFoundStyle.Render(fmt.Sprintf("no reply from %s within %s", portPath, timeout)))
		return nil
	}
	fmt.Fprintf(w, "%s %s\n", styles.FoundStyle.Render(portPath+":"), printable(reply))
	return nil
}

// printable replaces control characters for display
func printable(b []byte) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || (r >= 32 && r <= 126) {
			return r
		}
		return '·'
	}, strings.TrimSpace(string(b)))
}
