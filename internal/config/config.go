// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the YAML configuration file of the codac command.
//
// A configuration file looks like this; every key is optional:
//
//	output: build
//	parallelism: 4
//	color: always
//	midi:
//	  division: 480
//	  velocity: 90
//	  meta: true
//	render:
//	  soundfont: fonts/piano.sf2
//	  sample-rate: 48000
//	  program: 0
//	  tail: 2s
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/render"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the contents of a configuration file.
type Config struct {
	// Where output files are written, relative to the working directory.
	Output      string `yaml:"output"`
	Parallelism int    `yaml:"parallelism"`
	// One of auto, always or never.
	Color  string `yaml:"color"`
	MIDI   MIDI   `yaml:"midi"`
	Render Render `yaml:"render"`
}

// MIDI configures the encoder.
type MIDI struct {
	Division uint16 `yaml:"division"`
	Velocity uint8  `yaml:"velocity"`
	Meta     bool   `yaml:"meta"`
}

// Render configures WAV rendering, which only happens when a SoundFont is
// set.
type Render struct {
	SoundFont  string   `yaml:"soundfont"`
	SampleRate int32    `yaml:"sample-rate"`
	Program    int32    `yaml:"program"`
	Tail       Duration `yaml:"tail"`
}

// Duration is a time.Duration written the way time.ParseDuration reads it.
type Duration time.Duration

// UnmarshalYAML implements [yaml.Unmarshaler].
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	v, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements [yaml.Marshaler].
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{Output: "output", Color: ColorAuto}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration. Keys missing from data keep
// their [Default] values; unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: color must be %s, %s or %s, got %q", ErrInvalid, ColorAuto, ColorAlways, ColorNever, c.Color)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: negative parallelism %d", ErrInvalid, c.Parallelism)
	}
	// The top bit of the division selects SMPTE timing, which is not
	// supported.
	if c.MIDI.Division > 0x7fff {
		return fmt.Errorf("%w: division %d is above 32767", ErrInvalid, c.MIDI.Division)
	}
	if c.MIDI.Velocity > 127 {
		return fmt.Errorf("%w: velocity %d is above 127", ErrInvalid, c.MIDI.Velocity)
	}
	if c.Render.Program < 0 || c.Render.Program > 127 {
		return fmt.Errorf("%w: program %d is not between 0 and 127", ErrInvalid, c.Render.Program)
	}
	if c.Render.SampleRate < 0 {
		return fmt.Errorf("%w: negative sample rate %d", ErrInvalid, c.Render.SampleRate)
	}
	return nil
}

// Encoder returns the MIDI encoder settings.
func (c *Config) Encoder() midi.Encoder {
	return midi.Encoder{
		Division: c.MIDI.Division,
		Velocity: c.MIDI.Velocity,
		Meta:     c.MIDI.Meta,
	}
}

// RenderOptions returns the WAV rendering settings.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		SampleRate: c.Render.SampleRate,
		Program:    c.Render.Program,
		Tail:       time.Duration(c.Render.Tail),
	}
}
