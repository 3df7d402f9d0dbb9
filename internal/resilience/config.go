package resilience

import "time"

// Circuit breaker configuration constants
const (
	// Default configuration
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Enrichment configuration (optional collaborators whose absence is tolerable)
	EnrichmentThreshold         = 3
	EnrichmentResetTimeout      = 60 * time.Second
	EnrichmentHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// EnrichmentConfig returns settings for best-effort collaborators. The
// breaker trips early and stays open long so a down service cannot slow
// every pipeline run.
func EnrichmentConfig() Config {
	return Config{
		Threshold:         EnrichmentThreshold,
		ResetTimeout:      EnrichmentResetTimeout,
		HalfOpenSuccesses: EnrichmentHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
