// Package config loads the cwtrainer settings file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/audio"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// Config represents the settings file structure.
type Config struct {
	Training *TrainingConfig `json:"training,omitempty"`
	Audio    *AudioConfig    `json:"audio,omitempty"`
	// Notify sends a desktop notification when a session completes.
	Notify bool `json:"notify"`
}

// TrainingConfig holds the defaults for new sessions.
type TrainingConfig struct {
	WPM int `json:"wpm"`
	// FarnsworthWPM is the effective speed. Zero means no Farnsworth spacing.
	FarnsworthWPM  int    `json:"farnsworth_wpm,omitempty"`
	SpeedTier      string `json:"speed_tier"`
	SessionSeconds int    `json:"session_seconds"`
	// Alphabet overrides KochLevel when set.
	Alphabet         string `json:"alphabet,omitempty"`
	KochLevel        int    `json:"koch_level"`
	Replay           bool   `json:"replay"`
	ExtraWordSpacing int    `json:"extra_word_spacing,omitempty"`
	FeedbackPauseMs  int    `json:"feedback_pause_ms,omitempty"`
}

// AudioConfig holds sidetone settings.
type AudioConfig struct {
	ToneHz float64 `json:"tone_hz"`
	Volume float64 `json:"volume"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Training: &TrainingConfig{
			WPM:            20,
			SpeedTier:      string(timing.Medium),
			SessionSeconds: 120,
			KochLevel:      2,
		},
		Audio: &AudioConfig{
			ToneHz: audio.DefaultToneHz,
			Volume: audio.DefaultVolume,
		},
	}
}

// ConfigPath returns the path to the settings file (~/.cwtrainer/config.json).
func ConfigPath() string {
	return filepath.Join(common.DataDir(), "config.json")
}

// Load loads the config from ConfigPath.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Training == nil {
		c.Training = defaults.Training
	} else {
		if c.Training.WPM == 0 {
			c.Training.WPM = defaults.Training.WPM
		}
		if c.Training.SpeedTier == "" {
			c.Training.SpeedTier = defaults.Training.SpeedTier
		}
		if c.Training.SessionSeconds == 0 {
			c.Training.SessionSeconds = defaults.Training.SessionSeconds
		}
		if c.Training.KochLevel == 0 {
			c.Training.KochLevel = defaults.Training.KochLevel
		}
	}
	if c.Audio == nil {
		c.Audio = defaults.Audio
	} else {
		if c.Audio.ToneHz == 0 {
			c.Audio.ToneHz = defaults.Audio.ToneHz
		}
		if c.Audio.Volume == 0 {
			c.Audio.Volume = defaults.Audio.Volume
		}
	}
}

// Save saves the config to ConfigPath.
func Save(config *Config) error {
	if err := os.MkdirAll(filepath.Dir(ConfigPath()), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

// ResolvedAlphabet returns the characters to train: the explicit alphabet if set,
// otherwise the first KochLevel characters of the Koch order.
func (t *TrainingConfig) ResolvedAlphabet() []rune {
	if t.Alphabet != "" {
		return morsecode.Normalize(t.Alphabet)
	}
	return morsecode.KochAlphabet(t.KochLevel)
}

// SessionConfig builds and validates the settings of a session in mode.
func (t *TrainingConfig) SessionConfig(mode emission.Mode) (emission.SessionConfig, error) {
	tier, err := timing.ParseSpeedTier(t.SpeedTier)
	if err != nil {
		return emission.SessionConfig{}, err
	}
	farnsworth := t.FarnsworthWPM
	if farnsworth == 0 {
		farnsworth = t.WPM
	}
	cfg := emission.SessionConfig{
		Mode:             mode,
		WPM:              t.WPM,
		FarnsworthWPM:    farnsworth,
		SpeedTier:        tier,
		Length:           time.Duration(t.SessionSeconds) * time.Second,
		Alphabet:         t.ResolvedAlphabet(),
		Replay:           t.Replay,
		ExtraWordSpacing: t.ExtraWordSpacing,
		FeedbackDelay:    time.Duration(t.FeedbackPauseMs) * time.Millisecond,
	}
	return cfg, cfg.Validate()
}

// AudioOptions converts the audio section for audio.New.
func (c *Config) AudioOptions() audio.Options {
	return audio.Options{
		ToneHz:           c.Audio.ToneHz,
		Volume:           c.Audio.Volume,
		ExtraWordSpacing: c.Training.ExtraWordSpacing,
	}
}
