package metrics

import (
	"math"
	"time"

	"connwatch/internal/models"
)

// AvailabilitySummary summarises the recorded connectivity history.
type AvailabilitySummary struct {
	State            models.ConnectivityState `json:"state"`
	Label            string                   `json:"label"`
	AvailablePercent float64                  `json:"available_percent"`
	Transitions      int                      `json:"transitions"`
	Outages          int                      `json:"outages"`
	WindowStart      string                   `json:"window_start,omitempty"`
	WindowEnd        string                   `json:"window_end,omitempty"`
	StreakSeconds    float64                  `json:"streak_seconds"`
}

// ComputeAvailability derives a time-weighted availability percentage from a
// transition series: each state is weighted by how long it was held, with
// the last state extended to now.
func ComputeAvailability(transitions []models.Transition, now time.Time) AvailabilitySummary {
	summary := AvailabilitySummary{
		State: models.StateUnavailable,
		Label: models.StateUnavailable.Label(),
	}
	if len(transitions) == 0 {
		return summary
	}

	var available, total time.Duration
	outages := 0
	for i, t := range transitions {
		end := now
		if i+1 < len(transitions) {
			end = transitions[i+1].At
		}
		held := end.Sub(t.At)
		if held < 0 {
			held = 0
		}
		total += held
		if t.State.Normalize() == models.StateAvailable {
			available += held
		} else if i > 0 {
			outages++
		}
	}

	last := transitions[len(transitions)-1]
	summary.State = last.State.Normalize()
	summary.Label = summary.State.Label()
	summary.Transitions = len(transitions)
	summary.Outages = outages
	summary.WindowStart = transitions[0].At.UTC().Format(time.RFC3339)
	summary.WindowEnd = now.UTC().Format(time.RFC3339)
	if streak := now.Sub(last.At); streak > 0 {
		summary.StreakSeconds = round2(streak.Seconds())
	}
	if total > 0 {
		summary.AvailablePercent = round2(float64(available) / float64(total) * 100)
	} else if summary.State == models.StateAvailable {
		summary.AvailablePercent = 100
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
