package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stepwright/stepwright/pkg/utils"
)

// Settings are the user-tunable recorder/runner knobs, stored in the per-OS
// config directory.
type Settings struct {
	// TypeFlushDelayMS is the idle gap before buffered typing commits.
	TypeFlushDelayMS int `json:"type_flush_delay_ms"`

	// IgnoreShortClipboard drops clipboard captures shorter than this many
	// characters. Zero records everything.
	IgnoreShortClipboard int `json:"ignore_short_clipboard"`

	// ClipboardPollMS is the clipboard snapshot interval.
	ClipboardPollMS int `json:"clipboard_poll_ms"`

	// StepDelayMS is the fixed pause between replayed steps.
	StepDelayMS int `json:"step_delay_ms"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		TypeFlushDelayMS:     700,
		IgnoreShortClipboard: 0,
		ClipboardPollMS:      200,
		StepDelayMS:          80,
	}
}

// SettingsPath returns the settings file location in the config directory.
func SettingsPath() string {
	return filepath.Join(utils.GetConfigDir(), "settings.json")
}

// LoadSettings reads settings from path, returning defaults when the file
// does not exist. Unset (zero) knobs that have non-zero defaults are
// backfilled.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings: %w", err)
	}

	def := DefaultSettings()
	if s.TypeFlushDelayMS <= 0 {
		s.TypeFlushDelayMS = def.TypeFlushDelayMS
	}
	if s.ClipboardPollMS <= 0 {
		s.ClipboardPollMS = def.ClipboardPollMS
	}
	if s.StepDelayMS <= 0 {
		s.StepDelayMS = def.StepDelayMS
	}
	if s.IgnoreShortClipboard < 0 {
		s.IgnoreShortClipboard = 0
	}
	return s, nil
}

// SaveSettings writes settings to path, creating the directory if needed.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
