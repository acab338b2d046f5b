package engine

// Config holds engine tuning knobs.
type Config struct {
	// MaxAttempts bounds how often an operation that lost a concurrent race
	// is retried from scratch before the conflict is surfaced.
	MaxAttempts int `json:"max_attempts"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}
