package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"motive/thread"
)

// MaxSensors bounds the sensor chain: each sensor takes two reader event bits.
const MaxSensors = 9

var ErrInvalidConfig = errors.New("invalid config")

// ThreadConfig is the file form of a thread's settings.
type ThreadConfig struct {
	Priority  int64 `toml:"priority"`
	StackSize int64 `toml:"stack_size"`
	QueueSize int64 `toml:"queue_size,omitempty"`
}

type ThreadsConfig struct {
	Reader      ThreadConfig `toml:"reader"`
	Transmitter ThreadConfig `toml:"transmitter"`
	Bus         ThreadConfig `toml:"bus"`
	Commands    ThreadConfig `toml:"commands"`
	Control     ThreadConfig `toml:"control"`
	Actuator    ThreadConfig `toml:"actuator"`
	Monitor     ThreadConfig `toml:"monitor"`
}

// SensorConfig describes one simulated encoder on the bus.
type SensorConfig struct {
	Name      string `toml:"name"`
	Start     int64  `toml:"start"`
	Step      int64  `toml:"step"`
	LatencyUS int64  `toml:"latency_us"`
	Broken    bool   `toml:"broken,omitempty"`
}

type ControlConfig struct {
	PeriodMS int64   `toml:"period_ms"`
	Setpoint float64 `toml:"setpoint"`
	Kp       float64 `toml:"kp"`
	Ki       float64 `toml:"ki"`
	Kd       float64 `toml:"kd"`
}

type TelemetryConfig struct {
	// Sink is "log", "serial" or "none".
	Sink     string `toml:"sink"`
	LogEvery int64  `toml:"log_every"`
}

// Config is the application configuration file.
type Config struct {
	AcquisitionPeriodMS  int64 `toml:"acquisition_period_ms"`
	AcquisitionTimeoutMS int64 `toml:"acquisition_timeout_ms"`
	MonitorPeriodMS      int64 `toml:"monitor_period_ms"`

	Threads   ThreadsConfig   `toml:"threads"`
	Control   ControlConfig   `toml:"control"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Sensors   []SensorConfig  `toml:"sensors"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		AcquisitionPeriodMS:  50,
		AcquisitionTimeoutMS: 5,
		MonitorPeriodMS:      250,
		Threads: ThreadsConfig{
			Reader:      ThreadConfig{Priority: int64(thread.High), StackSize: 1024},
			Transmitter: ThreadConfig{Priority: int64(thread.AboveNormal), StackSize: 2048},
			Bus:         ThreadConfig{Priority: int64(thread.Realtime), StackSize: 512, QueueSize: 4},
			Commands:    ThreadConfig{Priority: int64(thread.Normal), StackSize: 512, QueueSize: 4},
			Control:     ThreadConfig{Priority: int64(thread.High), StackSize: 1024},
			Actuator:    ThreadConfig{Priority: int64(thread.High), StackSize: 512, QueueSize: 2},
			Monitor:     ThreadConfig{Priority: int64(thread.Low), StackSize: 4096},
		},
		Control: ControlConfig{PeriodMS: 20, Setpoint: 0, Kp: 0.8, Ki: 0.1, Kd: 0.01},
		Telemetry: TelemetryConfig{Sink: "log", LogEvery: 20},
		Sensors: []SensorConfig{
			{Name: "tlv0", Start: 0, Step: 15, LatencyUS: 300},
			{Name: "tlv1", Start: 9000, Step: -10, LatencyUS: 300},
			{Name: "lr17", Start: 4500, Step: 5, LatencyUS: 800},
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteTOML encodes cfg as TOML.
func (c Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate reports the first problem found in c.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

// settings is a Config narrowed to the types the threads use.
type settings struct {
	acquisitionPeriod  time.Duration
	acquisitionTimeout time.Duration
	monitorPeriod      time.Duration

	reader, transmitter, bus, commands, control, actuator, monitor threadSettings

	pid struct {
		period     time.Duration
		setpoint   float64
		kp, ki, kd float64
	}
	sink     string
	logEvery uint32
	sensors  []SensorConfig
}

type threadSettings struct {
	priority  thread.Priority
	stackSize uint32
	queueSize int
}

func (s threadSettings) config(name string) thread.Config {
	return thread.Config{Priority: s.priority, Name: name, StackSize: s.stackSize}
}

func (c Config) resolve() (settings, error) {
	var s settings
	var err error

	if s.acquisitionPeriod, err = millis("acquisition_period_ms", c.AcquisitionPeriodMS); err != nil {
		return s, err
	}
	if s.acquisitionTimeout, err = millis("acquisition_timeout_ms", c.AcquisitionTimeoutMS); err != nil {
		return s, err
	}
	if s.monitorPeriod, err = millis("monitor_period_ms", c.MonitorPeriodMS); err != nil {
		return s, err
	}

	threads := []struct {
		name   string
		in     ThreadConfig
		out    *threadSettings
		queued bool
	}{
		{"reader", c.Threads.Reader, &s.reader, false},
		{"transmitter", c.Threads.Transmitter, &s.transmitter, false},
		{"bus", c.Threads.Bus, &s.bus, true},
		{"commands", c.Threads.Commands, &s.commands, true},
		{"control", c.Threads.Control, &s.control, false},
		{"actuator", c.Threads.Actuator, &s.actuator, true},
		{"monitor", c.Threads.Monitor, &s.monitor, false},
	}
	for _, th := range threads {
		if *th.out, err = resolveThread(th.name, th.in, th.queued); err != nil {
			return s, err
		}
	}

	if s.pid.period, err = millis("control.period_ms", c.Control.PeriodMS); err != nil {
		return s, err
	}
	s.pid.setpoint = c.Control.Setpoint
	s.pid.kp, s.pid.ki, s.pid.kd = c.Control.Kp, c.Control.Ki, c.Control.Kd

	switch c.Telemetry.Sink {
	case "log", "serial", "none":
		s.sink = c.Telemetry.Sink
	default:
		return s, fmt.Errorf("%w: telemetry.sink %q", ErrInvalidConfig, c.Telemetry.Sink)
	}
	if s.logEvery, err = safecast.Conv[uint32](c.Telemetry.LogEvery); err != nil || s.logEvery == 0 {
		return s, fmt.Errorf("%w: telemetry.log_every %d", ErrInvalidConfig, c.Telemetry.LogEvery)
	}

	if len(c.Sensors) == 0 || len(c.Sensors) > MaxSensors {
		return s, fmt.Errorf("%w: %d sensors, want 1..%d", ErrInvalidConfig, len(c.Sensors), MaxSensors)
	}
	for i, sc := range c.Sensors {
		if sc.Name == "" {
			return s, fmt.Errorf("%w: sensors[%d] has no name", ErrInvalidConfig, i)
		}
		if _, err := safecast.Conv[int32](sc.Start); err != nil {
			return s, fmt.Errorf("%w: sensors[%d].start: %w", ErrInvalidConfig, i, err)
		}
		if _, err := safecast.Conv[int32](sc.Step); err != nil {
			return s, fmt.Errorf("%w: sensors[%d].step: %w", ErrInvalidConfig, i, err)
		}
		if sc.LatencyUS < 0 {
			return s, fmt.Errorf("%w: sensors[%d].latency_us %d", ErrInvalidConfig, i, sc.LatencyUS)
		}
	}
	s.sensors = c.Sensors
	return s, nil
}

func resolveThread(name string, in ThreadConfig, queued bool) (threadSettings, error) {
	var out threadSettings

	p, err := safecast.Conv[uint8](in.Priority)
	if err != nil || !thread.Priority(p).Valid() {
		return out, fmt.Errorf("%w: threads.%s.priority %d, want %d..%d",
			ErrInvalidConfig, name, in.Priority, thread.Minimum, thread.Maximum)
	}
	out.priority = thread.Priority(p)

	if out.stackSize, err = safecast.Conv[uint32](in.StackSize); err != nil || out.stackSize == 0 {
		return out, fmt.Errorf("%w: threads.%s.stack_size %d", ErrInvalidConfig, name, in.StackSize)
	}

	if queued {
		if out.queueSize, err = safecast.Conv[int](in.QueueSize); err != nil || out.queueSize <= 0 {
			return out, fmt.Errorf("%w: threads.%s.queue_size %d", ErrInvalidConfig, name, in.QueueSize)
		}
	}
	return out, nil
}

func millis(field string, ms int64) (time.Duration, error) {
	if ms <= 0 || ms > int64(time.Hour/time.Millisecond) {
		return 0, fmt.Errorf("%w: %s %d", ErrInvalidConfig, field, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
