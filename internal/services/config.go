package services

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the scheduling rules. Durations are offsets or lengths; the
// operating window is wall-clock time of the trip's day in Location.
type Config struct {
	DayStart time.Duration `json:"day_start"`
	DayEnd   time.Duration `json:"day_end"`
	// Buffer is the gap required on each side of a trip for vehicles and operators.
	Buffer   time.Duration `json:"buffer"`
	SpeedKmh float64       `json:"speed_kmh"`
	// Location is the IANA zone the operating window and calendar days are read in.
	Location string        `json:"location"`

	MaintenanceIntervalDays int `json:"maintenance_interval_days"`
	MaintenanceGraceDays    int `json:"maintenance_grace_days"`
	// MaxLookaheadDays bounds the maintenance day search.
	MaxLookaheadDays int `json:"max_lookahead_days"`
}

func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values with the standard operating rules.
func (c *Config) SetDefaults() {
	if c.DayStart == 0 {
		c.DayStart = 8 * time.Hour
	}
	if c.DayEnd == 0 {
		c.DayEnd = 16 * time.Hour
	}
	if c.Buffer == 0 {
		c.Buffer = 30 * time.Minute
	}
	if c.Location == "" {
		c.Location = "UTC"
	}
	if c.SpeedKmh == 0 {
		c.SpeedKmh = 5
	}
	if c.MaintenanceIntervalDays == 0 {
		c.MaintenanceIntervalDays = 90
	}
	if c.MaintenanceGraceDays == 0 {
		c.MaintenanceGraceDays = 10
	}
	if c.MaxLookaheadDays == 0 {
		c.MaxLookaheadDays = 365
	}
}

func (c Config) Validate() error {
	if c.DayStart < 0 || c.DayEnd > 24*time.Hour || c.DayStart >= c.DayEnd {
		return fmt.Errorf("scheduling: invalid operating window %s-%s", c.DayStart, c.DayEnd)
	}
	if c.Buffer < 0 {
		return errors.New("scheduling: buffer must not be negative")
	}
	if c.SpeedKmh <= 0 {
		return errors.New("scheduling: speed_kmh must be positive")
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		return fmt.Errorf("scheduling: location %q: %w", c.Location, err)
	}
	if c.MaintenanceIntervalDays < 1 || c.MaintenanceGraceDays < 0 {
		return errors.New("scheduling: maintenance interval must be positive and grace non-negative")
	}
	if c.MaxLookaheadDays < 1 {
		return errors.New("scheduling: max_lookahead_days must be positive")
	}
	return nil
}

// OperatingLocation resolves Location, falling back to UTC when it is unset or unknown.
func (c Config) OperatingLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
