// Package config loads gridkit settings from a TOML file.
//
// The file is optional. Every setting has a default, and a missing file at
// the default location is not an error. The location is resolved in this
// order: an explicit path, the GRIDKIT_CONFIG environment variable, then
// gridkit.toml in the user config directory ($XDG_CONFIG_HOME/gridkit or
// ~/.config/gridkit).
//
//	local_pages = ["warehouse"]
//
//	[breakpoints]
//	mobile = 768
//	tablet = 1024
//
//	[resize]
//	width_sensitivity = 200
//	strict = false
//
//	[store]
//	backend = "sqlite"
//	sqlite_path = "/var/lib/gridkit/layouts.db"
//
//	[server]
//	addr = ":8080"
//
//	[[pages]]
//	id = "returns"
//	name = "Returns"
//	widgets = ["order-summary"]
//
//	[pages.layouts.desktop]
//	columns = 4
//	widgets = [{ id = "order-summary", row = 0, col = 0, width = 4, height = 2 }]
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/controller"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

const (
	appName = "gridkit"

	// FileName is the name of the config file inside the config directory.
	FileName = "gridkit.toml"

	// EnvPath overrides the config file location.
	EnvPath = "GRIDKIT_CONFIG"
)

// Config is the complete gridkit configuration.
type Config struct {
	Breakpoints breakpoint.Thresholds    `toml:"breakpoints"`
	Resize      controller.ResizeOptions `toml:"resize"`
	Store       backend.Config           `toml:"store"`
	Server      ServerConfig             `toml:"server"`

	// LocalPages are kept in their own blob, one per page, instead of the
	// shared registry.
	LocalPages []string `toml:"local_pages"`

	// Pages and Widgets extend or replace the built-in catalog by id.
	Pages   []PageConfig      `toml:"pages"`
	Widgets []grid.WidgetInfo `toml:"widgets"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
	// Undecoded lists keys in the file that no setting consumed.
	Undecoded []string `toml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// PageConfig declares a page and, optionally, its default layouts keyed by
// breakpoint name.
type PageConfig struct {
	ID      string                  `toml:"id"`
	Name    string                  `toml:"name"`
	Path    string                  `toml:"path"`
	Widgets []string                `toml:"widgets"`
	Layouts map[string]LayoutConfig `toml:"layouts"`
}

// LayoutConfig is a default layout. Columns may be omitted and is then
// taken from the breakpoint.
type LayoutConfig struct {
	Columns int            `toml:"columns"`
	Widgets []WidgetConfig `toml:"widgets"`
}

// WidgetConfig is one widget placement. Visible defaults to true.
type WidgetConfig struct {
	ID      string `toml:"id"`
	Row     int    `toml:"row"`
	Col     int    `toml:"col"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Visible *bool  `toml:"visible"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Breakpoints: breakpoint.DefaultThresholds,
		Resize: controller.ResizeOptions{
			WidthSensitivity:  controller.DefaultWidthSensitivity,
			HeightSensitivity: controller.DefaultHeightSensitivity,
		},
		Store: backend.Config{
			Kind: backend.KindFile,
			Dir:  filepath.Join(StateDir(), "layouts"),
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load reads the config file. An explicit path, or one named by
// GRIDKIT_CONFIG, must exist; the default location may be absent. Values
// missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvPath); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	for _, k := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, k.String())
	}

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks thresholds, sensitivities, and every configured page
// layout.
func (c Config) Validate() error {
	if err := c.Breakpoints.Validate(); err != nil {
		return err
	}
	if c.Resize.WidthSensitivity < 0 || c.Resize.HeightSensitivity < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "resize sensitivity must not be negative")
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if err := errors.ValidatePageID(p.ID); err != nil {
			return err
		}
		if seen[p.ID] {
			return errors.New(errors.ErrCodeInvalidInput, "page %q is declared twice", p.ID)
		}
		seen[p.ID] = true
		if _, err := p.layoutSet(); err != nil {
			return err
		}
	}
	for _, w := range c.Widgets {
		if err := errors.ValidateWidgetID(w.ID); err != nil {
			return err
		}
	}
	for _, id := range c.LocalPages {
		if err := errors.ValidatePageID(id); err != nil {
			return err
		}
	}
	return nil
}

// Catalog returns the built-in catalog with the configured pages, widgets
// and default layouts merged over it.
func (c Config) Catalog() (grid.Catalog, error) {
	cat := grid.DefaultCatalog()
	extra := grid.Catalog{Widgets: c.Widgets, Defaults: make(map[string]grid.LayoutSet)}
	for _, p := range c.Pages {
		extra.Pages = append(extra.Pages, grid.Page{ID: p.ID, Name: p.Name, Path: p.Path, Widgets: p.Widgets})
		if len(p.Layouts) == 0 {
			continue
		}
		set, err := p.layoutSet()
		if err != nil {
			return grid.Catalog{}, err
		}
		extra.Defaults[p.ID] = set
	}
	cat.Merge(extra)
	return cat, nil
}

// layoutSet converts the configured layouts. Breakpoints the page does not
// configure get an empty layout.
func (p PageConfig) layoutSet() (grid.LayoutSet, error) {
	var set grid.LayoutSet
	for _, bp := range breakpoint.All {
		set.Set(bp, grid.Empty(bp))
	}
	for name, lc := range p.Layouts {
		bp, err := breakpoint.Parse(name)
		if err != nil {
			return grid.LayoutSet{}, fmt.Errorf("page %q: %w", p.ID, err)
		}
		l := lc.layout(bp)
		if l.Columns != bp.Columns() {
			return grid.LayoutSet{}, errors.New(errors.ErrCodeInvalidInput,
				"page %q: %s layout must have %d columns, got %d", p.ID, bp, bp.Columns(), l.Columns)
		}
		if err := grid.Validate(l); err != nil {
			return grid.LayoutSet{}, fmt.Errorf("page %q %s layout: %w", p.ID, bp, err)
		}
		set.Set(bp, l)
	}
	return set, nil
}

func (lc LayoutConfig) layout(bp breakpoint.Breakpoint) grid.Layout {
	l := grid.Layout{Columns: lc.Columns, Widgets: make([]grid.Widget, 0, len(lc.Widgets))}
	if l.Columns == 0 {
		l.Columns = bp.Columns()
	}
	for _, w := range lc.Widgets {
		visible := w.Visible == nil || *w.Visible
		l.Widgets = append(l.Widgets, grid.Widget{
			ID: w.ID, Row: w.Row, Col: w.Col, Width: w.Width, Height: w.Height, Visible: visible,
		})
	}
	return l
}

// DefaultPath returns the config file location used when neither a path
// nor GRIDKIT_CONFIG is given.
func DefaultPath() string {
	return filepath.Join(configDir(), FileName)
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// StateDir returns the directory for persisted layouts:
// $XDG_STATE_HOME/gridkit or ~/.local/state/gridkit.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}
