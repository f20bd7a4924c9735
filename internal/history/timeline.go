// Package history turns the transition series into compact bucketed
// timelines for the dashboard.
package history

import (
	"strings"
	"time"

	"connwatch/internal/models"
)

const (
	// DefaultBuckets controls how many dots the dashboard timeline shows.
	DefaultBuckets = 48

	// MaxBuckets bounds a single timeline; bucket counts reach this code
	// straight from the request query string.
	MaxBuckets = 500

	StateUnknown = "unknown"
	StateOK      = "ok"
	StateIssue   = "issue"
)

// Bucket is one timeline slot. Issue dominates within a slot: if the state
// was Unavailable at any point during the slot, the slot reports an issue.
type Bucket struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
}

// interval is a span during which one connectivity state was in effect.
type interval struct {
	start, end time.Time
	state      models.ConnectivityState
	cause      string
}

// BuildTimeline maps the transition series onto count equal buckets between
// start and end. Slots that predate the first recorded transition stay
// unknown.
func BuildTimeline(transitions []models.Transition, start, end time.Time, count int) []Bucket {
	if count <= 0 {
		count = DefaultBuckets
	}
	if count > MaxBuckets {
		count = MaxBuckets
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	buckets := newBuckets(start, end, count)
	intervals := buildIntervals(transitions, end)
	if len(intervals) == 0 {
		return buckets
	}

	for i := range buckets {
		for _, iv := range intervals {
			if !overlaps(buckets[i].Start, buckets[i].End, iv.start, iv.end) {
				continue
			}
			if iv.state == models.StateAvailable {
				if buckets[i].State == StateUnknown {
					buckets[i].State = StateOK
					buckets[i].Detail = detailOf(iv)
				}
				continue
			}
			buckets[i].State = StateIssue
			buckets[i].Detail = detailOf(iv)
			break
		}
	}
	return buckets
}

func newBuckets(start, end time.Time, count int) []Bucket {
	width := end.Sub(start) / time.Duration(count)
	if width <= 0 {
		width = time.Second
	}
	buckets := make([]Bucket, count)
	current := start
	for i := range buckets {
		next := current.Add(width)
		if i == count-1 {
			next = end
		}
		buckets[i] = Bucket{Start: current, End: next, State: StateUnknown}
		current = next
	}
	return buckets
}

func buildIntervals(transitions []models.Transition, end time.Time) []interval {
	intervals := make([]interval, 0, len(transitions))
	for i, t := range transitions {
		ivEnd := end
		if i+1 < len(transitions) {
			ivEnd = transitions[i+1].At
		}
		if !ivEnd.After(t.At) {
			continue
		}
		intervals = append(intervals, interval{
			start: t.At,
			end:   ivEnd,
			state: t.State.Normalize(),
			cause: t.Cause,
		})
	}
	return intervals
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func detailOf(iv interval) string {
	if detail := strings.TrimSpace(iv.cause); detail != "" {
		return detail
	}
	return iv.state.Label()
}
