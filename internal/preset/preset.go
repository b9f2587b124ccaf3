// Package preset reads and writes preset files: a YAML list of named
// session configs that can be shared between installs.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/strikesense/internal/session"
)

// Preset is a named session config.
type Preset struct {
	Name   string
	Config session.Config
}

type yamlFile struct {
	Presets []yamlPreset `yaml:"presets"`
}

type yamlPreset struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Rounds  int    `yaml:"rounds"`
	Work    string `yaml:"work"`
	Rest    string `yaml:"rest,omitempty"`
	Warning string `yaml:"warning,omitempty"`
}

// Load parses a preset document. Every entry must name a valid config;
// the first bad entry fails the whole document.
func Load(r io.Reader) ([]Preset, error) {
	var file yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse presets yaml: %w", err)
	}

	seen := make(map[string]bool, len(file.Presets))
	presets := make([]Preset, 0, len(file.Presets))
	for i, yp := range file.Presets {
		p, err := yp.toPreset()
		if err != nil {
			return nil, fmt.Errorf("preset %d (%q): %w", i+1, yp.Name, err)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return nil, fmt.Errorf("preset %d: duplicate name %q", i+1, p.Name)
		}
		seen[key] = true
		presets = append(presets, p)
	}
	return presets, nil
}

// Save writes presets as a YAML document.
func Save(w io.Writer, presets []Preset) error {
	file := yamlFile{Presets: make([]yamlPreset, 0, len(presets))}
	for _, p := range presets {
		file.Presets = append(file.Presets, fromPreset(p))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("marshal presets yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal presets yaml: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ImportFile loads presets from path.
func ImportFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// ExportFile writes presets to path, creating parent directories.
func ExportFile(path string, presets []Preset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create presets directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Save(&buf, presets); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write presets file: %w", err)
	}
	return nil
}

func (yp yamlPreset) toPreset() (Preset, error) {
	name := strings.TrimSpace(yp.Name)
	if name == "" {
		return Preset{}, errors.New("name is required")
	}
	mode := session.ModeRound
	if yp.Mode != "" {
		m, err := session.ParseMode(yp.Mode)
		if err != nil {
			return Preset{}, err
		}
		mode = m
	}
	work, err := parseDuration("work", yp.Work, 0)
	if err != nil {
		return Preset{}, err
	}
	rest, err := parseDuration("rest", yp.Rest, 0)
	if err != nil {
		return Preset{}, err
	}
	warning, err := parseDuration("warning", yp.Warning, session.DefaultWarnAt)
	if err != nil {
		return Preset{}, err
	}
	cfg, err := session.New(mode, yp.Rounds, work, rest, warning)
	if err != nil {
		return Preset{}, err
	}
	return Preset{Name: name, Config: cfg}, nil
}

func fromPreset(p Preset) yamlPreset {
	return yamlPreset{
		Name:    p.Name,
		Mode:    p.Config.Mode.String(),
		Rounds:  p.Config.Rounds,
		Work:    p.Config.Work.String(),
		Rest:    p.Config.Rest.String(),
		Warning: p.Config.Warning.String(),
	}
}

func parseDuration(field, s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, s)
	}
	return d, nil
}
