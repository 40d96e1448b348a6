// Package cache provides a durable response cache for model calls.
//
// Keys are deterministic digests of the model identifier, the fully
// rendered prompt, and the sampling parameters, so identical logical
// inputs hit the same entry across processes and restarts. Entries
// expire after a configurable TTL and expired rows are evicted
// opportunistically on writes.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultTTL is how long entries stay fresh when no TTL is configured.
const DefaultTTL = 3600 * time.Second

// Key derives the cache key for a model call. The digest covers the
// model name, the rendered prompt, and the temperature, separated by
// NUL bytes so field boundaries cannot collide.
func Key(model, prompt string, temperature float64) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(temperature, 'g', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a cached model response.
type Entry struct {
	Key       string
	Output    string
	CreatedAt time.Time
}
