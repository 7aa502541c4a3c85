package domain

import (
	"sort"
	"strings"
)

// Configuration is the strategy key/value mapping loaded once at startup.
type Configuration map[string]float64

func (c Configuration) Get(key string) (float64, bool) {
	v, ok := c[key]
	return v, ok
}

func (c Configuration) GetOr(key string, fallback float64) float64 {
	if v, ok := c[key]; ok {
		return v
	}
	return fallback
}

// Require reports every missing key in one error.
func (c Configuration) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := c[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return Errorf(ErrCodeInvalidConfiguration, "missing required configuration keys: %s", strings.Join(missing, ", "))
}

func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
