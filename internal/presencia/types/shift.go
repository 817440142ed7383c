package types

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed shifts.yaml
var defaultShiftsYAML []byte

// ShiftWindow is a named half-open time-of-day range [StartHour, EndHour).
// A window whose end is numerically below its start wraps past midnight.
type ShiftWindow struct {
	Name      string `yaml:"name"`
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
}

// Contains reports whether the hour (0-23) falls inside the window.
func (w ShiftWindow) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	// Wrapping window, e.g. 22 -> 6.
	return hour >= w.StartHour || hour < w.EndHour
}

// ShiftSchedule is the fixed set of windows a site operates with.  The
// windows must cover all 24 hours with no gaps and no overlaps so that every
// attempt maps to exactly one current shift.
type ShiftSchedule struct {
	Windows []ShiftWindow `yaml:"shifts"`
}

// DefaultShiftSchedule returns the embedded three-window schedule.
func DefaultShiftSchedule() ShiftSchedule {
	s, err := parseShiftSchedule(defaultShiftsYAML)
	if err != nil {
		// The embedded default is validated by tests; failing here would be
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded shift schedule: %v", err))
	}
	return s
}

// LoadShiftSchedule reads a schedule from a yaml file.  An empty path returns
// the embedded default.
func LoadShiftSchedule(path string) (ShiftSchedule, error) {
	if path == "" {
		return DefaultShiftSchedule(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ShiftSchedule{}, fmt.Errorf("read shift schedule: %w", err)
	}
	return parseShiftSchedule(raw)
}

func parseShiftSchedule(raw []byte) (ShiftSchedule, error) {
	var s ShiftSchedule
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return ShiftSchedule{}, fmt.Errorf("parse shift schedule: %w", err)
	}
	if err := s.Validate(); err != nil {
		return ShiftSchedule{}, err
	}
	return s, nil
}

// Validate checks that every hour of the day maps to exactly one window.
func (s ShiftSchedule) Validate() error {
	if len(s.Windows) == 0 {
		return fmt.Errorf("shift schedule has no windows")
	}
	for _, w := range s.Windows {
		if w.Name == "" {
			return fmt.Errorf("shift window with empty name")
		}
		if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
			return fmt.Errorf("shift %q: hours out of range", w.Name)
		}
	}
	for hour := 0; hour < 24; hour++ {
		n := 0
		for _, w := range s.Windows {
			if w.Contains(hour) {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("hour %d covered by %d shift windows, want exactly 1", hour, n)
		}
	}
	return nil
}

// At returns the name of the shift window containing the instant.  The time
// is normalized to UTC first; storing and comparing instants in UTC keeps
// the window computation stable across terminal timezones.
func (s ShiftSchedule) At(t time.Time) string {
	hour := t.UTC().Hour()
	for _, w := range s.Windows {
		if w.Contains(hour) {
			return w.Name
		}
	}
	return "" // unreachable for a validated schedule
}

// Known reports whether name is one of the schedule's window names.
func (s ShiftSchedule) Known(name string) bool {
	for _, w := range s.Windows {
		if w.Name == name {
			return true
		}
	}
	return false
}
