package history

// Config controls history retention.
type Config struct {
	// MaxHistory bounds the number of retained layers; the oldest layers are
	// dropped first. 0 means unbounded.
	MaxHistory int `json:"max_history,omitempty" yaml:"max_history"`
}
