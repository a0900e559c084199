package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allbin/go-serialprobe"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// load runs Init and Load on a fresh viper, isolated from the user's config
func load(t *testing.T, file string) (Config, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	v := viper.New()
	if err := Init(v, file); err != nil {
		return Config{}, err
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	c, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "/sys", c.Sysfs.Root)
	assert.Equal(t, "/dev", c.Dev.Dir)
	assert.Equal(t, ProbeConfig{
		Prefix:  "/dev/ttyUSB",
		Count:   10,
		Command: `AT\r\n`,
		Match:   "OK",
		Baud:    115200,
		Timeout: time.Second,
		Policy:  "first",
	}, c.Probe)
	assert.Equal(t, []string{"ttyUSB", "ttyACM"}, c.Map.Classes)
	assert.Equal(t, 32, c.Map.MaxIndex)
	assert.Equal(t, 2*time.Second, c.Watch.Interval)

	cmd, err := c.Probe.CommandBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\r\n"), cmd)
	assert.Equal(t, serial.PolicyFirst, c.Probe.MatchPolicy())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SERIALPROBE_PROBE_PREFIX", "/dev/ttyACM")
	t.Setenv("SERIALPROBE_PROBE_COUNT", "4")
	t.Setenv("SERIALPROBE_PROBE_TIMEOUT", "300ms")
	t.Setenv("SERIALPROBE_PROBE_POLICY", "last")
	t.Setenv("SERIALPROBE_MAP_CLASSES", "ttyUSB,ttyAMA")

	c, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM", c.Probe.Prefix)
	assert.Equal(t, 4, c.Probe.Count)
	assert.Equal(t, 300*time.Millisecond, c.Probe.Timeout)
	assert.Equal(t, serial.PolicyLast, c.Probe.MatchPolicy())
	assert.Equal(t, []string{"ttyUSB", "ttyAMA"}, c.Map.Classes)
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "serialprobe.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log:
  level: debug
probe:
  command: 'ATI\r'
  match: Quectel
  baud: 9600
  dtr: true
map:
  max_index: 8
`), 0o644))

	c, err := load(t, file)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "Quectel", c.Probe.Match)
	assert.Equal(t, 9600, c.Probe.Baud)
	assert.True(t, c.Probe.DTR)
	assert.Equal(t, 8, c.Map.MaxIndex)
	assert.Len(t, c.Probe.PortOptions(), 2)

	cmd, err := c.Probe.CommandBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("ATI\r"), cmd)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c, err := load(t, "")
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative count", func(c *Config) { c.Probe.Count = -1 }},
		{"zero timeout", func(c *Config) { c.Probe.Timeout = 0 }},
		{"bad baud", func(c *Config) { c.Probe.Baud = 12345 }},
		{"bad policy", func(c *Config) { c.Probe.Policy = "any" }},
		{"bad escape", func(c *Config) { c.Probe.Command = `AT\q` }},
		{"no classes", func(c *Config) { c.Map.Classes = nil }},
		{"negative max index", func(c *Config) { c.Map.MaxIndex = -1 }},
		{"zero interval", func(c *Config) { c.Watch.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestExpandEscapes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AT", "AT"},
		{`AT\r\n`, "AT\r\n"},
		{`AT+CGMI\r`, "AT+CGMI\r"},
		{`say "hi"\n`, "say \"hi\"\n"},
		{"\x1a", "\x1a"},
	}

	for _, tt := range tests {
		got, err := ExpandEscapes(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
