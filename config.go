// config.go - engine tuning configuration
//
// This is deliberately distinct from the per-app persisted EQ/volume/
// bypass settings blob, which spec.md §1/§6 places out of scope (loaded
// elsewhere and fed to the engine as parameter commands after Start).
// EngineConfig only covers parameters the engine itself needs to boot:
// sample rate, ring capacity, spectrum target FPS, discovery cadence,
// and channel depths.
package gecko

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig tunes the engine's real-time parameters. Zero-value
// fields are replaced by DefaultEngineConfig's defaults in NewEngine.
type EngineConfig struct {
	SampleRate       int           `yaml:"sample_rate"`
	RingCapacity     int           `yaml:"ring_capacity"`
	SpectrumFPS      int           `yaml:"spectrum_fps"`
	DiscoveryPeriod  time.Duration `yaml:"discovery_period"`
	CommandQueueSize int           `yaml:"command_queue_size"`
}

// DefaultEngineConfig matches the defaults named throughout spec.md:
// 48kHz, ~1s stereo ring (96000 samples), 60fps spectrum target, a 2s
// discovery tick, and a 32-slot command channel.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate:       48000,
		RingCapacity:     96000,
		SpectrumFPS:      60,
		DiscoveryPeriod:  2 * time.Second,
		CommandQueueSize: 32,
	}
}

// withDefaults fills any zero-value field from DefaultEngineConfig.
func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = d.RingCapacity
	}
	if c.SpectrumFPS <= 0 {
		c.SpectrumFPS = d.SpectrumFPS
	}
	if c.DiscoveryPeriod <= 0 {
		c.DiscoveryPeriod = d.DiscoveryPeriod
	}
	if c.CommandQueueSize <= 0 {
		c.CommandQueueSize = d.CommandQueueSize
	}
	return c
}

// LoadEngineConfig reads a YAML engine configuration file. Missing
// fields fall back to DefaultEngineConfig's values.
func LoadEngineConfig(path string) (EngineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("gecko: reading engine config %s: %w", path, err)
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("gecko: parsing engine config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// SaveEngineConfig writes cfg to path as YAML.
func SaveEngineConfig(path string, cfg EngineConfig) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("gecko: encoding engine config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("gecko: writing engine config %s: %w", path, err)
	}
	return nil
}
