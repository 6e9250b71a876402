package thread

import (
	"time"

	"fortio.org/safecast"
)

// stackGranule is the native stack allocation unit in bytes.
const stackGranule = 8

// Config holds the fields shared by every creatable variant.
type Config struct {
	Priority  Priority
	Name      string
	StackSize uint32
	Startup   StartupFunc
	Param     any
}

// IsValid reports whether the common fields are acceptable.
func (c Config) IsValid() bool {
	if !c.Priority.Valid() || c.StackSize == 0 {
		return false
	}
	_, ok := roundStack(c.StackSize)
	return ok
}

func (c Config) nameOr(def string) string {
	if c.Name == "" {
		return def
	}
	return c.Name
}

// roundStack rounds size up to the native granule.
func roundStack(size uint32) (uint32, bool) {
	n := (uint64(size) + stackGranule - 1) / stackGranule * stackGranule
	rounded, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, false
	}
	return rounded, true
}

// EventConfig configures an EventThread.
type EventConfig struct {
	Config
	OnEvent OnEventFunc
	Timeout time.Duration
}

func (c EventConfig) IsValid() bool {
	return c.Config.IsValid() && c.OnEvent != nil && c.Timeout > 0
}

// MessageConfig configures a MessageThread.
type MessageConfig struct {
	Config
	OnMessage OnMessageFunc
	Timeout   time.Duration
	QueueSize int
}

func (c MessageConfig) IsValid() bool {
	return c.Config.IsValid() && c.OnMessage != nil && c.Timeout > 0 && c.QueueSize > 0
}

// ValueConfig configures a ValueThread.
type ValueConfig struct {
	Config
	OnValue   OnValueFunc
	Timeout   time.Duration
	QueueSize int
}

func (c ValueConfig) IsValid() bool {
	return c.Config.IsValid() && c.OnValue != nil && c.Timeout > 0 && c.QueueSize > 0
}

// CallbackConfig configures a CallbackThread. After is optional.
type CallbackConfig struct {
	Config
	After     AfterFunc
	Timeout   time.Duration
	QueueSize int
}

func (c CallbackConfig) IsValid() bool {
	return c.Config.IsValid() && c.Timeout > 0 && c.QueueSize > 0
}

// PeriodicConfig configures a PeriodicThread.
type PeriodicConfig struct {
	Config
	OnPeriod OnPeriodFunc
	Period   time.Duration
}

func (c PeriodicConfig) IsValid() bool {
	return c.Config.IsValid() && c.OnPeriod != nil && c.Period > 0
}
