package feed

import "runtime"

// Config tunes a Validator.
type Config struct {
	// Workers bounds concurrent table loads and validator tasks.
	Workers int
	// MaxNoticesPerCode caps stored notices per code; 0 keeps all.
	MaxNoticesPerCode int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           runtime.GOMAXPROCS(0),
		MaxNoticesPerCode: 0,
	}
}

func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MaxNoticesPerCode < 0 {
		c.MaxNoticesPerCode = 0
	}
	return c
}
