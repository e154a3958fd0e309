package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/edgefx"
)

// preset is the on-disk form of a configuration preset.
type preset struct {
	Enabled  bool    `toml:"enabled"`
	Mode     string  `toml:"mode"`
	Refine   bool    `toml:"refine"`
	CelShade bool    `toml:"cel_shade"`
	Low      float32 `toml:"low_threshold"`
	High     float32 `toml:"high_threshold"`
	Frames   int     `toml:"frames"`
	Backend  string  `toml:"backend"`
}

// settings is everything a run needs besides its input and output.
type settings struct {
	config  edgefx.Config
	frames  int
	backend string
}

func defaultSettings() settings {
	return settings{config: edgefx.DefaultConfig(), frames: 1}
}

// loadPreset applies the keys present in the TOML file at path to s.
// Keys absent from the file leave s unchanged.
func loadPreset(path string, s settings) (settings, error) {
	var raw preset
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load preset: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load preset: unknown keys %v", undecoded)
	}

	if meta.IsDefined("enabled") {
		s.config.Enabled = raw.Enabled
	}
	if meta.IsDefined("mode") {
		m, err := edgefx.ParseMode(strings.ToLower(strings.TrimSpace(raw.Mode)))
		if err != nil {
			return settings{}, fmt.Errorf("parse mode: %w", err)
		}
		s.config.Mode = m
	}
	if meta.IsDefined("refine") {
		s.config.Refine = raw.Refine
	}
	if meta.IsDefined("cel_shade") {
		s.config.CelShade = raw.CelShade
	}
	if meta.IsDefined("low_threshold") {
		s.config.LowThreshold = raw.Low
	}
	if meta.IsDefined("high_threshold") {
		s.config.HighThreshold = raw.High
	}
	if meta.IsDefined("frames") {
		if raw.Frames < 1 {
			return settings{}, fmt.Errorf("frames must be positive, got %d", raw.Frames)
		}
		s.frames = raw.Frames
	}
	if meta.IsDefined("backend") {
		s.backend = strings.TrimSpace(raw.Backend)
	}
	return s, nil
}
