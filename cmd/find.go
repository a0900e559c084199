/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	"github.com/spf13/cobra"
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the serial port a modem answers on",
	Long: `Send a probe command (default "AT\r\n") to each candidate port and report
the one whose response contains the expected text (default "OK"), together
with its USB interface id.

Candidates are <prefix><n> for n in [start, start+count), by default
/dev/ttyUSB0 to /dev/ttyUSB9. Every candidate is probed and closed, even
after a match. If several answer, --policy picks the first (default) or
the last one.

Example usage:
  serialprobe find
  serialprobe find --prefix /dev/ttyACM --count 4
  serialprobe find --command 'AT+CGMI\r\n' --match OK --results`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		showResults, _ := cmd.Flags().GetBool("results")

		resolver, err := openResolver()
		exitOnError(err)

		command, err := cfg.Probe.CommandBytes()
		exitOnError(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		prober := serial.NewProber(logger, cfg.Probe.PortOptions()...)
		candidates := serial.NumberedCandidates(cfg.Probe.Prefix, cfg.Probe.Start, cfg.Probe.Count)
		results := prober.Probe(ctx, candidates, command, serial.ContainsMatch(cfg.Probe.Match), cfg.Probe.Timeout)

		if showResults {
			renderProbeResults(os.Stdout, results)
		}

		winner, ok := cfg.Probe.MatchPolicy().Select(results)
		reportWinner(os.Stdout, resolver, winner, ok)
	},
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().String("prefix", "/dev/ttyUSB", "candidate path prefix")
	findCmd.Flags().Int("start", 0, "first candidate number")
	findCmd.Flags().Int("count", 10, "number of candidates")
	findCmd.Flags().String("command", `AT\r\n`, `probe command, Go escapes allowed`)
	findCmd.Flags().String("match", "OK", "text a matching response contains")
	findCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	findCmd.Flags().Duration("timeout", 0, "per-port response timeout (default 1s)")
	findCmd.Flags().String("policy", "first", "which match to report when several answer: first, last")
	findCmd.Flags().Bool("dtr", false, "assert DTR after opening each port")
	findCmd.Flags().Bool("results", false, "print the outcome for every candidate")

	for key, flag := range map[string]string{
		"probe.prefix":  "prefix",
		"probe.start":   "start",
		"probe.count":   "count",
		"probe.command": "command",
		"probe.match":   "match",
		"probe.baud":    "baud",
		"probe.timeout": "timeout",
		"probe.policy":  "policy",
		"probe.dtr":     "dtr",
	} {
		bindFlag(key, findCmd.Flags().Lookup(flag))
	}
}

func renderProbeResults(w io.Writer, results []serial.ProbeResult) {
	for _, r := range results {
		switch {
		case r.Matched:
			fmt.Fprintf(w, "%-16s %s\n", r.Path, styles.FoundStyle.Render("match"))
		case r.Err != nil:
			fmt.Fprintf(w, "%-16s %s\n", r.Path, styles.MissingStyle.Render(r.Err.Error()))
		default:
			fmt.Fprintf(w, "%-16s %s %q\n", r.Path, styles.MissingStyle.Render("no match"), r.Response)
		}
	}
}

func reportWinner(w io.Writer, resolver *serial.Resolver, winner serial.ProbeResult, ok bool) {
	if !ok {
		fmt.Fprintf(w, "%s, interface ID: %s\n", styles.NotFoundStyle.Render("No modem found"), serial.NotFound)
		return
	}
	fmt.Fprintf(w, "%s %s, interface ID: %s\n",
		styles.FoundStyle.Render("Found modem at"), winner.Path, resolver.Resolve(winner.Path))
}
