// Package cache provides the layered response cache the runner consults
// before calling the model adapter: a go-cache memory layer in front of a
// JSON-file disk layer, keyed by a hash of the rendered prompt and model so
// a changed catalog never serves stale responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the minimal byte-value cache interface.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ResponseKey derives the cache key for one model call.
func ResponseKey(modelName, prompt string) string {
	h := sha256.Sum256([]byte(modelName + "\x00" + prompt))
	return "biaslens:v1:" + hex.EncodeToString(h[:])
}
