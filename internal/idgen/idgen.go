// Package idgen mints identifiers for things that are not part of the
// spec's ordering-sensitive counters (tensor ids, pattern ids, checkpoint
// ids all stay monotonic counters owned by their respective packages).
// It exists for the executor's own instance identity, used to correlate
// log lines and stats across multiple concurrently-instantiated
// executors in a single host process.
package idgen

import "github.com/google/uuid"

// NewInstanceID mints a fresh random identifier for an executor instance.
func NewInstanceID() string {
	return uuid.NewString()
}
