// Package config loads bot configuration from YAML or JSON files and
// exposes typed accessors with defaults.
package config

import (
	"time"
)

// Default values applied when a key is missing or malformed.
const (
	DefaultStorePath    = "./dicebutton.db"
	DefaultDeleteDelay  = 10 * time.Second
	DefaultMaxButtons   = 15
	DefaultAnswerFormat = "full"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// StorePath returns the flow record database path.
func (c Config) StorePath() string {
	return c.String("store_path", DefaultStorePath)
}

// DeleteDelay returns how long superseded flow records linger before
// deletion.
func (c Config) DeleteDelay() time.Duration {
	return c.Duration("delete_delay", DefaultDeleteDelay)
}

// MaxButtons returns the upper bound on buttons per message.
func (c Config) MaxButtons() int {
	return c.Int("max_buttons", DefaultMaxButtons)
}

// AnswerFormat returns the default answer presentation.
func (c Config) AnswerFormat() string {
	return c.String("answer_format", DefaultAnswerFormat)
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal if missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int: interpreted as seconds
//   - int64: interpreted as seconds
//   - float64: interpreted as seconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part)
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Int64 returns the int64 value for key, or defaultVal if missing or not
// convertible. Channel and guild identifiers need the full 64-bit range.
func (c Config) Int64(key string, defaultVal int64) int64 {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return defaultVal
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map.
// The returned map should not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}
