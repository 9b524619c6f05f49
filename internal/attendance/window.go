package attendance

import (
	"strings"
	"time"

	"rollcall/internal/services"
)

const (
	DefaultMinMinutes    = 60
	DefaultMinPercentage = 90
)

// WindowConfig describes one training session and its approval thresholds.
type WindowConfig struct {
	TrainingID    string    `json:"training_id"`
	LiveStart     time.Time `json:"live_start"`
	LiveEnd       time.Time `json:"live_end,omitempty"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	MinMinutes    int       `json:"min_minutes"`
	MinPercentage int       `json:"min_percentage"`
}

// Validate rejects configurations missing required bounds or carrying
// impossible thresholds.
func (c WindowConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.TrainingID) == "" {
		missing = append(missing, "training id")
	}
	if c.LiveStart.IsZero() {
		missing = append(missing, "live start")
	}
	if c.WindowStart.IsZero() {
		missing = append(missing, "window start")
	}
	if c.WindowEnd.IsZero() {
		missing = append(missing, "window end")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrInvalidConfiguration, "attendance", "window", "missing "+strings.Join(missing, ", "), nil)
	}
	if c.MinMinutes < 0 {
		return services.Wrap(services.ErrInvalidConfiguration, "attendance", "window", "minimum minutes must not be negative", nil)
	}
	if c.MinPercentage < 0 || c.MinPercentage > 100 {
		return services.Wrap(services.ErrInvalidConfiguration, "attendance", "window", "minimum percentage must be between 0 and 100", nil)
	}
	return nil
}

// WindowMinutes returns the activity window length, or 0 when the bounds are
// inverted or empty.
func (c WindowConfig) WindowMinutes() float64 {
	d := c.WindowEnd.Sub(c.WindowStart).Minutes()
	if d <= 0 {
		return 0
	}
	return d
}
