package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration extends time.Duration with "d" (days) and "w" (weeks) suffixes
type Duration struct {
	time.Duration
}

var longUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// EnvDecode implements envconfig.Decoder
func (d *Duration) EnvDecode(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	for suffix, unit := range longUnits {
		if !strings.HasSuffix(v, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(v, suffix))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		if n < 0 {
			return fmt.Errorf("invalid duration %q: must not be negative", v)
		}
		d.Duration = time.Duration(n) * unit
		return nil
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if duration < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", v)
	}
	d.Duration = duration
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
