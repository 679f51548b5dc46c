package fulfill

// Config holds the executor tunables.
type Config struct {
	// Concurrency bounds the per-order invoice and label request fan-out.
	Concurrency int
}

func (c Config) workers() int {
	if c.Concurrency <= 0 {
		return 4
	}
	return c.Concurrency
}
