package attendance

import (
	"math"
	"time"
)

// Analysis is the presence score for one participant.
type Analysis struct {
	TotalMinutes   int  `json:"total_minutes"`
	WindowMinutes  int  `json:"window_minutes"`
	WindowPercent  int  `json:"window_percent"`
	MeetsMinimum   bool `json:"meets_minimum"`
	MeetsWindow    bool `json:"meets_window"`
	Approved       bool `json:"approved"`
	ManualOverride bool `json:"manual_override,omitempty"`
}

// ForceApprove grants an exception. The computed sub-flags are left alone.
func (a *Analysis) ForceApprove() {
	a.Approved = true
	a.ManualOverride = true
}

// Analyzer scores participants against a fixed window configuration.
type Analyzer struct {
	cfg            WindowConfig
	windowDuration float64
}

// NewAnalyzer validates cfg and precomputes the window duration.
func NewAnalyzer(cfg WindowConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, windowDuration: cfg.WindowMinutes()}, nil
}

// Config returns the window configuration the analyzer was built with.
func (a *Analyzer) Config() WindowConfig {
	return a.cfg
}

// Analyze computes total and in-window minutes for p.
func (a *Analyzer) Analyze(p *Participant) Analysis {
	if p == nil {
		return Analysis{}
	}
	windowMinutes := int(math.Round(OverlapMinutes(p.Sessions, a.cfg.WindowStart, a.cfg.WindowEnd)))

	percent := 0
	if a.windowDuration > 0 {
		percent = int(math.Round(100 * float64(windowMinutes) / a.windowDuration))
	}

	out := Analysis{
		TotalMinutes:  p.TotalMinutes,
		WindowMinutes: windowMinutes,
		WindowPercent: percent,
		MeetsMinimum:  p.TotalMinutes >= a.cfg.MinMinutes,
		MeetsWindow:   percent >= a.cfg.MinPercentage,
	}
	out.Approved = out.MeetsMinimum && out.MeetsWindow
	return out
}

// OverlapMinutes sums, unrounded, the minutes each session spends inside
// [start, end).
func OverlapMinutes(sessions []Session, start, end time.Time) float64 {
	var total float64
	for _, s := range sessions {
		effectiveStart := s.Join
		if start.After(effectiveStart) {
			effectiveStart = start
		}
		effectiveEnd := s.Leave
		if end.Before(effectiveEnd) {
			effectiveEnd = end
		}
		if effectiveStart.Before(effectiveEnd) {
			total += effectiveEnd.Sub(effectiveStart).Minutes()
		}
	}
	return total
}
