package enums

import "fmt"

// GenerationType distinguishes how a track generation was seeded.
type GenerationType string

const (
	GenerationTypeTextToMusic  GenerationType = "text-to-music"
	GenerationTypeAudioToMusic GenerationType = "audio-to-music"
)

var validGenerationTypes = []GenerationType{
	GenerationTypeTextToMusic,
	GenerationTypeAudioToMusic,
}

// String implements fmt.Stringer.
func (t GenerationType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t GenerationType) IsValid() bool {
	for _, candidate := range validGenerationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGenerationType converts raw input into a GenerationType.
func ParseGenerationType(value string) (GenerationType, error) {
	for _, candidate := range validGenerationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation type %q", value)
}
