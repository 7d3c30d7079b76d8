package enums

import "fmt"

// GenerationStatus is the lifecycle state of an asynchronous synthesis job.
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

var validGenerationStatuses = []GenerationStatus{
	GenerationStatusPending,
	GenerationStatusGenerating,
	GenerationStatusCompleted,
	GenerationStatusFailed,
}

// String implements fmt.Stringer.
func (s GenerationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s GenerationStatus) IsValid() bool {
	for _, candidate := range validGenerationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether polling for this status must stop.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// ParseGenerationStatus converts raw input into a GenerationStatus.
func ParseGenerationStatus(value string) (GenerationStatus, error) {
	for _, candidate := range validGenerationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation status %q", value)
}
