package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"motive/thread"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Validate() err = %v, want nil", err)
	}
}

func TestConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero period", func(c *Config) { c.AcquisitionPeriodMS = 0 }},
		{"negative timeout", func(c *Config) { c.AcquisitionTimeoutMS = -1 }},
		{"priority below minimum", func(c *Config) { c.Threads.Reader.Priority = int64(thread.SchedIdle) }},
		{"priority overflow", func(c *Config) { c.Threads.Monitor.Priority = 300 }},
		{"zero stack", func(c *Config) { c.Threads.Transmitter.StackSize = 0 }},
		{"huge stack", func(c *Config) { c.Threads.Control.StackSize = 1 << 40 }},
		{"queue missing", func(c *Config) { c.Threads.Bus.QueueSize = 0 }},
		{"unknown sink", func(c *Config) { c.Telemetry.Sink = "udp" }},
		{"zero log every", func(c *Config) { c.Telemetry.LogEvery = 0 }},
		{"no sensors", func(c *Config) { c.Sensors = nil }},
		{"too many sensors", func(c *Config) { c.Sensors = make([]SensorConfig, MaxSensors+1) }},
		{"unnamed sensor", func(c *Config) { c.Sensors[0].Name = "" }},
		{"step overflow", func(c *Config) { c.Sensors[1].Step = 1 << 33 }},
		{"negative latency", func(c *Config) { c.Sensors[2].LatencyUS = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigResolve(t *testing.T) {
	s, err := DefaultConfig().resolve()
	if err != nil {
		t.Fatalf("resolve() err = %v", err)
	}
	if s.acquisitionPeriod != 50*time.Millisecond || s.acquisitionTimeout != 5*time.Millisecond {
		t.Fatalf("acquisition = (%v, %v), want (50ms, 5ms)", s.acquisitionPeriod, s.acquisitionTimeout)
	}
	if s.bus.priority != thread.Realtime || s.bus.queueSize != 4 {
		t.Fatalf("bus = %+v, want realtime with queue 4", s.bus)
	}
	c := s.reader.config(nameReader)
	if c.Name != nameReader || c.Priority != thread.High || c.StackSize != 1024 || !c.IsValid() {
		t.Fatalf("reader config = %+v", c)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motive.toml")
	data := `
acquisition_period_ms = 20

[telemetry]
sink = "none"

[[sensors]]
name = "enc"
start = 100
step = -3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() err = %v", err)
	}
	if cfg.AcquisitionPeriodMS != 20 || cfg.Telemetry.Sink != "none" {
		t.Fatalf("LoadConfig() = %+v", cfg)
	}
	if len(cfg.Sensors) != 1 || cfg.Sensors[0].Name != "enc" || cfg.Sensors[0].Step != -3 {
		t.Fatalf("Sensors = %+v, want one enc sensor", cfg.Sensors)
	}
	// Unset keys keep their defaults.
	if cfg.AcquisitionTimeoutMS != 5 || cfg.Telemetry.LogEvery != 20 {
		t.Fatalf("defaults lost: timeout=%d log_every=%d", cfg.AcquisitionTimeoutMS, cfg.Telemetry.LogEvery)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("acquisition_period_ms = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatal("LoadConfig(syntax error) err = nil")
	}

	invalid := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(invalid, []byte("[telemetry]\nsink = \"udp\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("LoadConfig(invalid) err = %v, want ErrInvalidConfig", err)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("LoadConfig(missing) err = nil")
	}
}

func TestWriteTOML(t *testing.T) {
	var buf bytes.Buffer
	if err := DefaultConfig().WriteTOML(&buf); err != nil {
		t.Fatalf("WriteTOML() err = %v", err)
	}

	var got Config
	if _, err := toml.Decode(buf.String(), &got); err != nil {
		t.Fatalf("Decode() err = %v\n%s", err, buf.String())
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("written config does not validate: %v", err)
	}
	if len(got.Sensors) != len(DefaultConfig().Sensors) {
		t.Fatalf("Sensors = %d, want %d", len(got.Sensors), len(DefaultConfig().Sensors))
	}
}
