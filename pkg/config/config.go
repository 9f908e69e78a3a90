// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/framepace/pkg/adapters/nullsink"
	"github.com/user/framepace/pkg/adapters/osfilesystem"
	"github.com/user/framepace/pkg/adapters/pngsink"
	"github.com/user/framepace/pkg/adapters/sheetsink"
	"github.com/user/framepace/pkg/normalize"
	"github.com/user/framepace/pkg/player"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/report"
)

// Sink kinds.
const (
	SinkNull  = "null"
	SinkPNG   = "png"
	SinkSheet = "sheet"
)

// Config represents the full configuration for framepace.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Playback
	Mode       string `yaml:"mode"`
	Pace       bool   `yaml:"pace"`
	MaxFrames  int    `yaml:"max_frames"`
	MaxSleepMs int    `yaml:"max_sleep_ms"`

	Sink   SinkConfig   `yaml:"sink"`
	Sheet  SheetConfig  `yaml:"sheet"`
	Report ReportConfig `yaml:"report"`
}

// SinkConfig selects where frames go.
type SinkConfig struct {
	Kind  string `yaml:"kind"`
	Dir   string `yaml:"dir"`
	Width int    `yaml:"width"`
	Every int    `yaml:"every"`
}

// SheetConfig configures the contact sheet sink.
type SheetConfig struct {
	Path            string `yaml:"path"`
	Columns         int    `yaml:"columns"`
	CellWidth       int    `yaml:"cell_width"`
	Every           int    `yaml:"every"`
	MaxCells        int    `yaml:"max_cells"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
}

// ReportConfig configures the playback summary.
type ReportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		LogLevel:   "info",
		Mode:       "grayscale",
		Pace:       true,
		MaxSleepMs: 50,

		Sink: SinkConfig{
			Kind:  SinkNull,
			Dir:   "./frames",
			Every: 1,
		},
		Sheet: SheetConfig{
			Path:            "./sheet.png",
			Columns:         4,
			CellWidth:       160,
			Every:           30,
			MaxCells:        48,
			BackgroundColor: "#202024",
			TextColor:       "#ffffff",
		},
		Report: ReportConfig{
			Format: "markdown",
		},
	}
}

// Load reads a YAML file through fs on top of the defaults.
func Load(fs ports.FileSystem, path string) (Config, error) {
	cfg := Defaults()

	data, err := fs.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on disk.
func LoadFromFile(path string) (Config, error) {
	return Load(osfilesystem.New(), path)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := normalize.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("max_frames must not be negative"))
	}
	if c.MaxSleepMs < 0 {
		errs = append(errs, fmt.Errorf("max_sleep_ms must not be negative"))
	}
	switch c.Sink.Kind {
	case SinkNull:
	case SinkPNG:
		if c.Sink.Dir == "" {
			errs = append(errs, fmt.Errorf("sink.dir is required for png output"))
		}
	case SinkSheet:
		if c.Sheet.Path == "" {
			errs = append(errs, fmt.Errorf("sheet.path is required for sheet output"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink kind %q", c.Sink.Kind))
	}
	if c.Sink.Width < 0 || c.Sheet.CellWidth < 0 {
		errs = append(errs, fmt.Errorf("widths must not be negative"))
	}
	for _, hex := range []string{c.Sheet.BackgroundColor, c.Sheet.TextColor} {
		if hex != "" {
			if _, err := ParseColor(hex); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if _, err := report.FormatterFor(c.Report.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ToPlayerOptions converts the playback settings. Clock, logger and file
// system are left for the caller to inject.
func (c Config) ToPlayerOptions() (player.Options, error) {
	mode, err := normalize.ParseMode(c.Mode)
	if err != nil {
		return player.Options{}, err
	}
	return player.Options{
		Mode:      mode,
		Pace:      c.Pace,
		MaxFrames: c.MaxFrames,
		MaxSleep:  time.Duration(c.MaxSleepMs) * time.Millisecond,
	}, nil
}

// NewSink creates the configured frame sink.
func (c Config) NewSink(fs ports.FileSystem) (ports.FrameSink, error) {
	switch c.Sink.Kind {
	case SinkNull, "":
		return nullsink.New(), nil
	case SinkPNG:
		return pngsink.New(fs, pngsink.Options{
			Dir:   c.Sink.Dir,
			Width: c.Sink.Width,
			Every: c.Sink.Every,
		}), nil
	case SinkSheet:
		layout := sheetsink.DefaultLayout()
		layout.Columns = c.Sheet.Columns
		layout.CellWidth = c.Sheet.CellWidth
		layout.Every = c.Sheet.Every
		layout.MaxCells = c.Sheet.MaxCells
		if c.Sheet.BackgroundColor != "" {
			bg, err := ParseColor(c.Sheet.BackgroundColor)
			if err != nil {
				return nil, err
			}
			layout.Background = bg
		}
		if c.Sheet.TextColor != "" {
			fg, err := ParseColor(c.Sheet.TextColor)
			if err != nil {
				return nil, err
			}
			layout.Foreground = fg
		}
		return sheetsink.New(fs, c.Sheet.Path, layout), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
}

// ParseColor parses a #rrggbb hex color string.
func ParseColor(hex string) (color.Color, error) {
	s := hex
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid color %q", hex)
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(s[i*2])
		lo, ok2 := hexValue(s[i*2+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid color %q", hex)
		}
		rgb[i] = hi<<4 | lo
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
