/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/config"
	"github.com/allbin/go-serialprobe/internal/logging"
	"github.com/allbin/go-serialprobe/internal/sysfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool

	v      = viper.New()
	cfg    config.Config
	logger = zap.NewNop().Sugar()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialprobe",
	Short: "Find modems on USB serial ports and map ports to USB interfaces",
	Long: `serialprobe locates a modem among USB serial ports and tells which USB
interface backs each serial device node.

USB serial nodes (ttyUSB*, ttyACM*) are renumbered when devices reconnect.
The USB interface id (e.g. 1-1.2:1.0) depends only on the physical port and
stays the same, so it is the stable way to refer to a device.

Settings are read from flags, SERIALPROBE_* environment variables and
$XDG_CONFIG_HOME/serialprobe/config.yaml, in that order of precedence.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags parsed fine; later failures are not usage errors
		cmd.SilenceUsage = true

		if err := config.Init(v, cfgFile); err != nil {
			return err
		}
		if verbose {
			v.Set("log.level", "debug")
		}

		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(cfg.Log.Level, os.Stderr)
		if err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		logger = l
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/serialprobe/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("sysfs-root", sysfs.DefaultRoot, "sysfs mount point")
	flags.String("dev-dir", "/dev", "device directory")

	bindFlag("log.level", flags.Lookup("log-level"))
	bindFlag("sysfs.root", flags.Lookup("sysfs-root"))
	bindFlag("dev.dir", flags.Lookup("dev-dir"))
}

// openResolver acquires the device graph. Failing to do so is fatal for
// every command that needs it.
func openResolver() (*serial.Resolver, error) {
	graph, err := sysfs.Open(cfg.Sysfs.Root)
	if err != nil {
		return nil, fmt.Errorf("cannot access device database: %w", err)
	}
	return serial.NewResolver(graph), nil
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
