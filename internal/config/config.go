// Package config loads serialprobe settings from defaults, a config file,
// SERIALPROBE_* environment variables and command line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/allbin/go-serialprobe"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. SERIALPROBE_PROBE_BAUD
const EnvPrefix = "SERIALPROBE"

type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Sysfs SysfsConfig `mapstructure:"sysfs"`
	Dev   DevConfig   `mapstructure:"dev"`
	Probe ProbeConfig `mapstructure:"probe"`
	Map   MapConfig   `mapstructure:"map"`
	Watch WatchConfig `mapstructure:"watch"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SysfsConfig struct {
	Root string `mapstructure:"root"`
}

type DevConfig struct {
	Dir string `mapstructure:"dir"`
}

// ProbeConfig controls the modem search
type ProbeConfig struct {
	Prefix  string        `mapstructure:"prefix"`
	Start   int           `mapstructure:"start"`
	Count   int           `mapstructure:"count"`
	Command string        `mapstructure:"command"`
	Match   string        `mapstructure:"match"`
	Baud    int           `mapstructure:"baud"`
	Timeout time.Duration `mapstructure:"timeout"`
	Policy  string        `mapstructure:"policy"`
	DTR     bool          `mapstructure:"dtr"`
}

// MapConfig controls device enumeration
type MapConfig struct {
	Classes  []string `mapstructure:"classes"`
	MaxIndex int      `mapstructure:"max_index"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SetDefaults registers the built-in defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("sysfs.root", "/sys")
	v.SetDefault("dev.dir", "/dev")

	v.SetDefault("probe.prefix", "/dev/ttyUSB")
	v.SetDefault("probe.start", 0)
	v.SetDefault("probe.count", 10)
	v.SetDefault("probe.command", `AT\r\n`)
	v.SetDefault("probe.match", "OK")
	v.SetDefault("probe.baud", 115200)
	v.SetDefault("probe.timeout", time.Second)
	v.SetDefault("probe.policy", "first")
	v.SetDefault("probe.dtr", false)

	v.SetDefault("map.classes", serial.DefaultClasses)
	v.SetDefault("map.max_index", 32)

	v.SetDefault("watch.interval", 2*time.Second)
}

// Init wires defaults, environment and the config file into v. An explicit
// file must exist; otherwise a missing config.yaml is not an error.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "serialprobe"))
	}
	v.AddConfigPath("/etc/serialprobe")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load decodes and validates the settings held by v
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the values that would otherwise fail deep inside a scan
func (c Config) Validate() error {
	if c.Probe.Count < 0 || c.Probe.Start < 0 {
		return fmt.Errorf("probe range %d+%d is negative", c.Probe.Start, c.Probe.Count)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %v", c.Probe.Timeout)
	}
	if err := serial.WithBaudRate(c.Probe.Baud)(new(serial.Config)); err != nil {
		return fmt.Errorf("probe.baud %d: %w", c.Probe.Baud, err)
	}
	if _, err := serial.ParseMatchPolicy(c.Probe.Policy); err != nil {
		return fmt.Errorf("probe.policy: %w", err)
	}
	if _, err := c.Probe.CommandBytes(); err != nil {
		return err
	}
	if len(c.Map.Classes) == 0 {
		return errors.New("map.classes must not be empty")
	}
	if c.Map.MaxIndex < 0 {
		return fmt.Errorf("map.max_index must not be negative, got %d", c.Map.MaxIndex)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %v", c.Watch.Interval)
	}
	return nil
}

// CommandBytes returns the probe command with Go escapes such as \r\n
// expanded, so they can be written in flags and environment variables.
func (p ProbeConfig) CommandBytes() ([]byte, error) {
	s, err := ExpandEscapes(p.Command)
	if err != nil {
		return nil, fmt.Errorf("probe.command %q: %w", p.Command, err)
	}
	return []byte(s), nil
}

// ExpandEscapes interprets Go string escapes such as \r and \n, so
// commands can be written on the command line and in YAML as typed
func ExpandEscapes(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	return strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
}

// MatchPolicy returns the parsed probe.policy
func (p ProbeConfig) MatchPolicy() serial.MatchPolicy {
	policy, _ := serial.ParseMatchPolicy(p.Policy)
	return policy
}

// PortOptions returns the serial options for probing
func (p ProbeConfig) PortOptions() []serial.Option {
	opts := []serial.Option{serial.WithBaudRate(p.Baud)}
	if p.DTR {
		opts = append(opts, serial.WithInitialDTR(true))
	}
	return opts
}
