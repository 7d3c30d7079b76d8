package enums

// EventType labels messages published on the generation topic.
type EventType string

const (
	EventGenerationCompleted EventType = "generation.completed"
	EventGenerationFailed    EventType = "generation.failed"
)

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}
