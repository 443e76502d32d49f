package call

import (
	"fmt"
	"os"
	"sync"

	"github.com/kelseyhightower/envconfig"
)

// EnvStackRecorder names the process-wide stack recording switch.
const EnvStackRecorder = "HTTPSTACK_STACK_RECORDER"

const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

// Switch is an on/off flag that only accepts "on", "off" or the empty string.
type Switch bool

// Decode implements envconfig.Decoder.
func (s *Switch) Decode(value string) error {
	switch value {
	case SwitchOn:
		*s = true
	case SwitchOff, "":
		*s = false
	default:
		return fmt.Errorf("unrecognized value %q, want %q or %q", value, SwitchOn, SwitchOff)
	}

	return nil
}

// Settings holds the process-level knobs of the package.
type Settings struct {
	StackRecorder Switch `envconfig:"STACK_RECORDER"`
}

// LoadSettings reads Settings from the environment on every call.
// Most callers want ProcessSettings.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("HTTPSTACK", &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s=%q: %w", ErrConfiguration, EnvStackRecorder, os.Getenv(EnvStackRecorder), err)
	}

	return s, nil
}

var processSettings = sync.OnceValues(LoadSettings)

// ProcessSettings returns the Settings read the first time it was called.
// A bad value keeps failing for the lifetime of the process.
func ProcessSettings() (Settings, error) {
	return processSettings()
}
