package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration written in config.toml as a Go duration
// string, e.g. tick_interval = "100ms". An empty value leaves it zero.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}

	v, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return fmt.Errorf("parse duration %q: %w", raw, err)
	case v < 0:
		return fmt.Errorf("duration %q is negative", raw)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
