package enums

import "fmt"

// TrackVisibility controls who can read a track.
type TrackVisibility string

const (
	TrackVisibilityPublic  TrackVisibility = "public"
	TrackVisibilityPrivate TrackVisibility = "private"
)

var validTrackVisibilities = []TrackVisibility{
	TrackVisibilityPublic,
	TrackVisibilityPrivate,
}

// String implements fmt.Stringer.
func (v TrackVisibility) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v TrackVisibility) IsValid() bool {
	for _, candidate := range validTrackVisibilities {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTrackVisibility converts raw input into a TrackVisibility.
func ParseTrackVisibility(value string) (TrackVisibility, error) {
	for _, candidate := range validTrackVisibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid track visibility %q", value)
}
