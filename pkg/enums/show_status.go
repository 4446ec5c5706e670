package enums

import "fmt"

// ShowStatus tracks a live selling session.
type ShowStatus string

const (
	ShowStatusScheduled ShowStatus = "scheduled"
	ShowStatusLive      ShowStatus = "live"
	ShowStatusEnded     ShowStatus = "ended"
)

var validShowStatuses = []ShowStatus{
	ShowStatusScheduled,
	ShowStatusLive,
	ShowStatusEnded,
}

var showStatusTransitions = map[ShowStatus][]ShowStatus{
	ShowStatusScheduled: {ShowStatusLive},
	ShowStatusLive:      {ShowStatusEnded},
}

// String implements fmt.Stringer.
func (s ShowStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShowStatus.
func (s ShowStatus) IsValid() bool {
	for _, candidate := range validShowStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge s→next is in the lifecycle graph.
func (s ShowStatus) CanTransitionTo(next ShowStatus) bool {
	for _, candidate := range showStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseShowStatus converts raw input into a ShowStatus.
func ParseShowStatus(value string) (ShowStatus, error) {
	for _, candidate := range validShowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid show status %q", value)
}
